package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, CommandHelp, parsed.Command)
	require.True(t, parsed.ShowHelp)
}

func TestParseSimpleCommands(t *testing.T) {
	for _, name := range []string{"run", "status", "play", "check", "retry", "next", "restart", "stop", "questions", "devices", "doctor", "version"} {
		parsed, err := Parse([]string{name})
		require.NoError(t, err, name)
		require.Equal(t, Command(name), parsed.Command)
		require.False(t, parsed.ShowHelp)
	}
}

func TestParseFlags(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/c.conf", "--book", "peter", "run"})
	require.NoError(t, err)
	require.Equal(t, CommandRun, parsed.Command)
	require.Equal(t, "/tmp/c.conf", parsed.ConfigPath)
	require.Equal(t, "peter", parsed.Book)
}

func TestParseAnswerJoinsWords(t *testing.T) {
	parsed, err := Parse([]string{"answer", "Goldilocks", "and", "the", "Three", "Bears"})
	require.NoError(t, err)
	require.Equal(t, CommandAnswer, parsed.Command)
	require.Equal(t, "Goldilocks and the Three Bears", parsed.Text)
}

func TestParseField(t *testing.T) {
	parsed, err := Parse([]string{"field", "1", "She", "broke", "a", "chair"})
	require.NoError(t, err)
	require.Equal(t, CommandField, parsed.Command)
	require.Equal(t, 1, parsed.Index)
	require.Equal(t, "She broke a chair", parsed.Text)

	_, err = Parse([]string{"field", "one", "text"})
	require.Error(t, err)
}

func TestParseRate(t *testing.T) {
	parsed, err := Parse([]string{"rate", "5"})
	require.NoError(t, err)
	require.Equal(t, 5, parsed.Rating)

	_, err = Parse([]string{"rate", "lots"})
	require.Error(t, err)
}

func TestParseAssistantRoom(t *testing.T) {
	parsed, err := Parse([]string{"assistant", "storyroom"})
	require.NoError(t, err)
	require.Equal(t, "storyroom", parsed.Room)

	_, err = Parse([]string{"assistant"})
	require.Error(t, err)
}

func TestParseRejectsMissingOrExtraArguments(t *testing.T) {
	_, err := Parse([]string{"answer"})
	require.Error(t, err)

	_, err = Parse([]string{"status", "extra"})
	require.Error(t, err)
}

func TestParseRejectsUnknown(t *testing.T) {
	_, err := Parse([]string{"dance"})
	require.Error(t, err)

	_, err = Parse([]string{"--frobnicate"})
	require.Error(t, err)
}

func TestParseHelpAndVersionFlags(t *testing.T) {
	parsed, err := Parse([]string{"--help"})
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)

	parsed, err = Parse([]string{"--version"})
	require.NoError(t, err)
	require.Equal(t, CommandVersion, parsed.Command)
}

func TestHelpTextMentionsCommands(t *testing.T) {
	text := HelpText("storyvoice")
	require.Contains(t, text, "storyvoice")
	require.Contains(t, text, "run")
	require.Contains(t, text, "assistant ROOM")
	require.Contains(t, text, "--book NAME")
}
