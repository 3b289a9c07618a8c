package link

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePublicLink(t *testing.T) {
	l, err := Parse("https://t.me/somechannel/123")
	require.NoError(t, err)
	require.Equal(t, "somechannel", l.Chat)
	require.False(t, l.Internal)
	require.Equal(t, int64(123), l.MessageID)
	require.False(t, l.Single)
	require.False(t, l.Thread)
	require.False(t, l.Comment())
}

func TestParsePrivateInternalLink(t *testing.T) {
	l, err := Parse("https://t.me/c/2012345678/456")
	require.NoError(t, err)
	require.Equal(t, "2012345678", l.Chat)
	require.True(t, l.Internal)
	require.Equal(t, int64(456), l.MessageID)
}

func TestParseWebPreviewForm(t *testing.T) {
	l, err := Parse("https://t.me/s/somechannel/7")
	require.NoError(t, err)
	require.Equal(t, "somechannel", l.Chat)
	require.False(t, l.Internal)
	require.Equal(t, int64(7), l.MessageID)
}

func TestParseQueryFlags(t *testing.T) {
	l, err := Parse("https://t.me/somechannel/123?single")
	require.NoError(t, err)
	require.True(t, l.Single)

	l, err = Parse("https://t.me/somechannel/123?comment=456")
	require.NoError(t, err)
	require.Equal(t, int64(456), l.CommentID)
	require.True(t, l.Comment())

	l, err = Parse("https://t.me/c/2012345678/99?thread=12&single")
	require.NoError(t, err)
	require.True(t, l.Thread)
	require.True(t, l.Single)
}

func TestParseStripsFragment(t *testing.T) {
	l, err := Parse("https://t.me/somechannel/123#anchor")
	require.NoError(t, err)
	require.Equal(t, int64(123), l.MessageID)
}

func TestParseTopicLinkUsesLastSegment(t *testing.T) {
	l, err := Parse("https://t.me/somegroup/55/789")
	require.NoError(t, err)
	require.Equal(t, "somegroup", l.Chat)
	require.Equal(t, int64(789), l.MessageID)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("hello world")
	require.ErrorIs(t, err, ErrNotALink)

	_, err = Parse("https://example.com/ch/123")
	require.ErrorIs(t, err, ErrNotALink)

	_, err = Parse("https://t.me/somechannel")
	require.ErrorIs(t, err, ErrNotALink)

	_, err = Parse("https://t.me/somechannel/abc")
	require.ErrorIs(t, err, ErrBadMessageID)

	_, err = Parse("https://t.me/somechannel/123?comment=xyz")
	require.ErrorIs(t, err, ErrBadMessageID)
}

func TestParseInvite(t *testing.T) {
	invite := ParseInvite("https://t.me/+AbCdEf123456")
	require.NotNil(t, invite)
	require.Equal(t, "AbCdEf123456", invite.Hash)

	invite = ParseInvite("https://t.me/joinchat/AbCdEf123456")
	require.NotNil(t, invite)
	require.Equal(t, "AbCdEf123456", invite.Hash)

	require.Nil(t, ParseInvite("https://t.me/somechannel/123"))
	require.Nil(t, ParseInvite("not a link"))
	require.Nil(t, ParseInvite("https://t.me/+"))
}

func TestIsMessageLink(t *testing.T) {
	require.True(t, IsMessageLink("https://t.me/x/1"))
	require.True(t, IsMessageLink("http://t.me/x/1"))
	require.True(t, IsMessageLink("https://telegram.me/x/1"))
	require.False(t, IsMessageLink("ftp://t.me/x/1"))
	require.False(t, IsMessageLink("https://example.com/x/1"))
	require.False(t, IsMessageLink("just text"))
}

// The pre-filter must accept every host Parse accepts, a www link would
// otherwise be silently ignored instead of relayed.
func TestIsMessageLinkWWWHosts(t *testing.T) {
	require.True(t, IsMessageLink("https://www.t.me/somechannel/5"))
	require.True(t, IsMessageLink("http://www.telegram.me/somechannel/5"))

	parsed, err := Parse("https://www.t.me/somechannel/5")
	require.NoError(t, err)
	require.Equal(t, "somechannel", parsed.Chat)
	require.Equal(t, int64(5), parsed.MessageID)
}
