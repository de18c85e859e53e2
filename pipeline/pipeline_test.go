package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Paranoid-AF/shellm"
	"github.com/Paranoid-AF/shellm/answer"
	"github.com/Paranoid-AF/shellm/prompt"
)

type fakeGateway struct {
	replies []string
	err     error
	calls   [][]shellm.Message
}

func (g *fakeGateway) Invoke(ctx context.Context, messages []shellm.Message) (string, error) {
	g.calls = append(g.calls, messages)
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "no json here", nil
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r, nil
}

// spyParser fails the test if it is ever used.
type spyParser struct {
	t *testing.T
}

func (s spyParser) Parse(ctx context.Context, initial string) (shellm.Answer, error) {
	s.t.Fatalf("parser invoked with %q", initial)
	return shellm.Answer{}, nil
}

func newPipeline(t *testing.T, gw *fakeGateway, rounds int) *Pipeline {
	r := prompt.NewRenderer()
	parser := answer.NewParser(gw, r, answer.Validator{}, rounds, zaptest.NewLogger(t))
	return New(r, gw, parser, zaptest.NewLogger(t))
}

func TestRecommendValidReply(t *testing.T) {
	gw := &fakeGateway{replies: []string{`{"recommendCommand": "ls -la"}`}}
	p := newPipeline(t, gw, 1)

	ans, err := p.Recommend(context.Background(), "C", "list all files")
	require.NoError(t, err)
	assert.Equal(t, "ls -la", ans.RecommendCommand)
	assert.Equal(t, shellm.StateDone, p.State())

	require.Len(t, gw.calls, 1)
	msgs := gw.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, shellm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "C")
	assert.Contains(t, msgs[0].Content, answer.FormatInstructions)
	assert.Equal(t, shellm.Message{Role: shellm.RoleUser, Content: "list all files"}, msgs[1])
}

func TestRecommendInvokesGatewayAtMostOnePlusRounds(t *testing.T) {
	for _, rounds := range []int{0, 1, 2} {
		gw := &fakeGateway{}
		p := newPipeline(t, gw, rounds)

		_, err := p.Recommend(context.Background(), "C", "intent")
		require.ErrorIs(t, err, shellm.ErrUnrecoverableParse)
		assert.Len(t, gw.calls, 1+rounds)
		assert.Equal(t, shellm.StateFailed, p.State())
	}
}

func TestRecommendStateSequence(t *testing.T) {
	gw := &fakeGateway{replies: []string{"oops", `{"recommendCommand": "pwd"}`}}
	p := newPipeline(t, gw, 1)

	var states []shellm.State
	p.SetObserver(func(s shellm.State) { states = append(states, s) })

	_, err := p.Recommend(context.Background(), "C", "where am I")
	require.NoError(t, err)
	assert.Equal(t, []shellm.State{
		shellm.StateRendering,
		shellm.StateAwaitingModel,
		shellm.StateValidating,
		shellm.StateRepairRoundPending,
		shellm.StateAwaitingModel,
		shellm.StateValidating,
		shellm.StateValid,
		shellm.StateDone,
	}, states)
}

func TestRecommendGatewayFailure(t *testing.T) {
	gw := &fakeGateway{err: shellm.ErrModelUnavailable}
	p := newPipeline(t, gw, 1)

	_, err := p.Recommend(context.Background(), "C", "x")
	assert.ErrorIs(t, err, shellm.ErrModelUnavailable)
	assert.Len(t, gw.calls, 1)
	assert.Equal(t, shellm.StateFailed, p.State())
}

func TestRecommendTemplateErrorSkipsModel(t *testing.T) {
	gw := &fakeGateway{}
	r := prompt.NewRenderer()
	r.SetSource(prompt.Command, "{{.missing}}")
	p := New(r, gw, spyParser{t}, nil)

	_, err := p.Recommend(context.Background(), "C", "x")
	var terr *shellm.TemplateError
	assert.ErrorAs(t, err, &terr)
	assert.Empty(t, gw.calls)
}

func TestAskNeverParses(t *testing.T) {
	replies := []string{
		"Use `du -sh *` to see sizes.",
		`{"recommendCommand": ""}`,
		"",
	}
	for _, reply := range replies {
		gw := &fakeGateway{replies: []string{reply}}
		p := New(prompt.NewRenderer(), gw, spyParser{t}, zaptest.NewLogger(t))

		text, err := p.Ask(context.Background(), "C", "how big is this dir?")
		require.NoError(t, err)
		assert.Equal(t, reply, text)
		require.Len(t, gw.calls, 1)
		assert.NotContains(t, gw.calls[0][0].Content, answer.FormatInstructions)
		assert.Equal(t, "how big is this dir?", gw.calls[0][1].Content)
	}
}

func TestRunDispatchesOnMode(t *testing.T) {
	gw := &fakeGateway{replies: []string{"free text"}}
	p := New(prompt.NewRenderer(), gw, spyParser{t}, nil)

	res, err := p.Run(context.Background(), ModeQuestion, "C", "q")
	require.NoError(t, err)
	assert.Equal(t, Result{Mode: ModeQuestion, Text: "free text"}, res)

	gw = &fakeGateway{replies: []string{`{"recommendCommand": "ls"}`}}
	p = newPipeline(t, gw, 1)
	res, err = p.Run(context.Background(), ModeCommand, "C", "q")
	require.NoError(t, err)
	assert.Equal(t, Result{Mode: ModeCommand, Answer: shellm.Answer{RecommendCommand: "ls"}}, res)
}

func TestContextIsPlacedLiterally(t *testing.T) {
	transcript := strings.Join([]string{"$ make test", "FAIL: TestFoo {{.x}}", "$ "}, "\n")
	gw := &fakeGateway{replies: []string{`{"recommendCommand": "make test"}`}}
	p := newPipeline(t, gw, 0)

	_, err := p.Recommend(context.Background(), transcript, "rerun")
	require.NoError(t, err)
	assert.Contains(t, gw.calls[0][0].Content, transcript)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "command", ModeCommand.String())
	assert.Equal(t, "question", ModeQuestion.String())
}
