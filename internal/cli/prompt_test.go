package cli

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/goalctl/internal/engine"
	"github.com/roach88/goalctl/internal/scope"
)

// scriptedLines feeds canned answers to a ReadlinePrompter.
type scriptedLines struct {
	lines []string
	err   error
}

func (s *scriptedLines) Readline() (string, error) {
	if len(s.lines) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func editPrompt() *engine.Prompt {
	return &engine.Prompt{
		Kind:    engine.PromptEditScope,
		Message: "This event is part of a routine. Which occurrences should change?",
		Options: scope.EditOptions(),
	}
}

func TestParseScopeAnswer(t *testing.T) {
	opts := scope.EditOptions()
	tests := []struct {
		input  string
		want   scope.Scope
		wantOK bool
	}{
		{"1", scope.Single, true},
		{"2", scope.Future, true},
		{" 3 ", scope.All, true},
		{"future", scope.Future, true},
		{"ALL", scope.All, true},
		{"0", "", false},
		{"4", "", false},
		{"later", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseScopeAnswer(tt.input, opts)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseScopeAnswer_NotOffered(t *testing.T) {
	opts := []scope.Option{{Scope: scope.Single, Label: "Only this occurrence"}}
	_, ok := parseScopeAnswer("all", opts)
	assert.False(t, ok)
}

func TestParseYesNo(t *testing.T) {
	for _, in := range []string{"y", "Y", "yes", " YES "} {
		yes, ok := parseYesNo(in)
		assert.True(t, ok, in)
		assert.True(t, yes, in)
	}
	for _, in := range []string{"n", "No"} {
		yes, ok := parseYesNo(in)
		assert.True(t, ok, in)
		assert.False(t, yes, in)
	}
	_, ok := parseYesNo("maybe")
	assert.False(t, ok)
}

func TestScriptedPrompter_ChooseScope(t *testing.T) {
	sc, err := ScriptedPrompter{Scope: scope.Future}.ChooseScope(editPrompt())
	require.NoError(t, err)
	assert.Equal(t, scope.Future, sc)

	_, err = ScriptedPrompter{}.ChooseScope(editPrompt())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--scope")

	single := &engine.Prompt{Options: []scope.Option{{Scope: scope.Single}}}
	_, err = ScriptedPrompter{Scope: scope.All}.ChooseScope(single)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not offered")
}

func TestScriptedPrompter_Confirm(t *testing.T) {
	pr := &engine.Prompt{Kind: engine.PromptDeleteRoutine, Message: "Delete routine?"}

	yes, err := ScriptedPrompter{Yes: true}.Confirm(pr)
	require.NoError(t, err)
	assert.True(t, yes)

	yes, err = ScriptedPrompter{}.Confirm(pr)
	require.NoError(t, err)
	assert.False(t, yes)

	_, err = ScriptedPrompter{Strict: true}.Confirm(pr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestReadlinePrompter_ChooseScope(t *testing.T) {
	out := &bytes.Buffer{}
	p := &ReadlinePrompter{rl: &scriptedLines{lines: []string{"9", "future"}}, out: out}

	sc, err := p.ChooseScope(editPrompt())
	require.NoError(t, err)
	assert.Equal(t, scope.Future, sc)
	assert.Contains(t, out.String(), "1) Only this occurrence")
	assert.Contains(t, out.String(), "Enter 1-3")
}

func TestReadlinePrompter_ShowsWarnings(t *testing.T) {
	out := &bytes.Buffer{}
	p := &ReadlinePrompter{rl: &scriptedLines{lines: []string{"1"}}, out: out}

	_, err := p.ChooseScope(&engine.Prompt{Kind: engine.PromptDeleteScope, Options: scope.DeleteOptions()})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "! The routine will end here.")
}

func TestReadlinePrompter_Confirm(t *testing.T) {
	out := &bytes.Buffer{}
	p := &ReadlinePrompter{rl: &scriptedLines{lines: []string{"perhaps", "y"}}, out: out}

	yes, err := p.Confirm(&engine.Prompt{Message: "Regenerate future occurrences?"})
	require.NoError(t, err)
	assert.True(t, yes)
	assert.Contains(t, out.String(), "[y/N]")
	assert.Contains(t, out.String(), "Answer y or n.")
}

func TestReadlinePrompter_Cancel(t *testing.T) {
	tests := []struct {
		name  string
		lines *scriptedLines
	}{
		{"empty_line", &scriptedLines{lines: []string{"  "}}},
		{"eof", &scriptedLines{}},
		{"interrupt", &scriptedLines{err: readline.ErrInterrupt}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &ReadlinePrompter{rl: tt.lines, out: io.Discard}
			_, err := p.ChooseScope(editPrompt())
			assert.ErrorIs(t, err, errPromptCancelled)
		})
	}
}

func TestReadlinePrompter_ReadError(t *testing.T) {
	boom := errors.New("terminal gone")
	p := &ReadlinePrompter{rl: &scriptedLines{err: boom}, out: io.Discard}
	_, err := p.Confirm(&engine.Prompt{Message: "Delete?"})
	assert.ErrorIs(t, err, boom)
}
