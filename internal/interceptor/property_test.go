package interceptor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestChain_OrderProperty checks, for any chain length, that stages enter in
// configuration order, exit in reverse, and the terminal runs exactly once.
func TestChain_OrderProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(rt, "interceptors")
		rewrite := rapid.Bool().Draw(rt, "rewrite")

		rec := &recorder{}
		interceptors := make([]Interceptor, n)

		for i := range n {
			name := fmt.Sprintf("s%d", i)
			interceptors[i] = Interceptor{
				Name: name,
				Intercept: func(ctx context.Context, req Request, ictx *Context, next Handler) (Response, error) {
					rec.add(name + ":in")

					if rewrite {
						req.Prompt += "+" + name
					}

					resp, err := next(ctx, req, ictx)
					rec.add(name + ":out")

					return resp, err
				},
			}
		}

		var terminalPrompt string

		terminal := func(ctx context.Context, req Request, ictx *Context) (Response, error) {
			terminalPrompt = req.Prompt

			return staticTerminal(rec)(ctx, req, ictx)
		}

		resp, err := New(discardLogger(), Config{Interceptors: interceptors}).
			Execute(context.Background(), newRequest("p"), terminal)
		require.NoError(rt, err)

		for _, err := range resp.Messages {
			require.NoError(rt, err)
		}

		want := make([]string, 0, 2*n+1)
		wantPrompt := "p"

		for i := range n {
			want = append(want, fmt.Sprintf("s%d:in", i))

			if rewrite {
				wantPrompt += fmt.Sprintf("+s%d", i)
			}
		}

		want = append(want, "terminal")

		for i := n - 1; i >= 0; i-- {
			want = append(want, fmt.Sprintf("s%d:out", i))
		}

		require.Equal(rt, want, rec.snapshot())
		require.Equal(rt, wantPrompt, terminalPrompt)
	})
}
