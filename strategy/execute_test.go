package strategy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/metacast/config"
	"github.com/c360studio/metacast/record"
)

// testResolver builds a resolver over a config hierarchy written to disk.
func testResolver(t *testing.T, files map[string]string) *config.Resolver {
	t.Helper()
	root := t.TempDir()

	if _, ok := files[config.GlobalDefaultsFile]; !ok {
		files[config.GlobalDefaultsFile] = "{}\n"
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	store, err := config.NewStore(root)
	require.NoError(t, err)
	return config.NewResolver(store)
}

type stubCompleter struct {
	value string
	err   error
	calls int
}

func (c *stubCompleter) Complete(ctx context.Context, promptKey string, fields map[string]string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.value, nil
}

func TestExecuteDirect(t *testing.T) {
	env := &Env{
		Record:    record.New(map[string]string{"title": "The Voyage"}),
		Accessors: record.NewAccessorMap(nil),
	}

	out := Execute(context.Background(), Direct("title"), env)
	require.Equal(t, StatusValue, out.Status)
	assert.Equal(t, "The Voyage", out.Value)

	// Absent source field yields an explicit empty, not an error
	out = Execute(context.Background(), Direct("subtitle"), env)
	assert.Equal(t, StatusEmpty, out.Status)

	// Present-but-empty copies verbatim
	env.Record = record.New(map[string]string{"subtitle": ""})
	out = Execute(context.Background(), Direct("subtitle"), env)
	require.Equal(t, StatusValue, out.Status)
	assert.Equal(t, "", out.Value)
}

func TestExecuteComputed(t *testing.T) {
	env := &Env{
		Record:    record.New(map[string]string{"pages": "248"}),
		Resolver:  testResolver(t, map[string]string{}),
		Accessors: record.NewAccessorMap(nil),
	}

	out := Execute(context.Background(), Computed("spine_width", SpineWidth), env)
	require.Equal(t, StatusValue, out.Status)
	// 248 pages / 444 ppi
	assert.Equal(t, "0.559", out.Value)
}

func TestExecuteComputedErrorIsolated(t *testing.T) {
	env := &Env{
		Record:    record.New(nil),
		Accessors: record.NewAccessorMap(nil),
	}

	boom := Computed("boom", func(env *Env) (string, error) {
		return "", errors.New("lookup table missing")
	})
	out := Execute(context.Background(), boom, env)
	require.Equal(t, StatusError, out.Status)
	assert.ErrorContains(t, out.Err, "lookup table missing")

	panics := Computed("panics", func(env *Env) (string, error) {
		panic("unexpected")
	})
	out = Execute(context.Background(), panics, env)
	require.Equal(t, StatusError, out.Status)
	assert.ErrorContains(t, out.Err, "panicked")
}

func TestExecuteDefaultResolvesThroughHierarchy(t *testing.T) {
	env := &Env{
		Record: record.New(nil),
		Resolver: testResolver(t, map[string]string{
			config.GlobalDefaultsFile: "binding: hardcover\n",
		}),
		Accessors: record.NewAccessorMap(nil),
	}

	out := Execute(context.Background(), Default("binding", "paperback"), env)
	require.Equal(t, StatusValue, out.Status)
	assert.Equal(t, "hardcover", out.Value)
	assert.Equal(t, "global", out.Source)

	// Undefined key falls back to the literal
	out = Execute(context.Background(), Default("unset_key", "fallback"), env)
	require.Equal(t, StatusValue, out.Status)
	assert.Equal(t, "fallback", out.Value)
	assert.Equal(t, "literal", out.Source)
}

func TestExecuteConditional(t *testing.T) {
	env := &Env{
		Record: record.New(map[string]string{"us_discount": "55"}),
		Resolver: testResolver(t, map[string]string{
			config.GlobalDefaultsFile: "us_discount: \"55\"\n",
		}),
		Accessors: record.NewAccessorMap(nil),
	}

	s := Conditional("high_discount", HighDiscount,
		Default("discount_code_short", "SHO"),
		Default("discount_code", "REG"))

	out := Execute(context.Background(), s, env)
	require.Equal(t, StatusValue, out.Status)
	assert.Equal(t, "SHO", out.Value)

	env.Resolver = testResolver(t, map[string]string{
		config.GlobalDefaultsFile: "us_discount: \"40\"\n",
	})
	env.Record = record.New(map[string]string{"us_discount": "40"})
	out = Execute(context.Background(), s, env)
	require.Equal(t, StatusValue, out.Status)
	assert.Equal(t, "REG", out.Value)
}

func TestExecuteCompletionSuccess(t *testing.T) {
	completer := &stubCompleter{value: "A sweeping tale of the sea."}
	env := &Env{
		Record:    record.New(map[string]string{"title": "The Voyage"}),
		Accessors: record.NewAccessorMap(nil),
		Completer: completer,
	}

	out := Execute(context.Background(), Completion("book_description", "{title}."), env)
	require.Equal(t, StatusValue, out.Status)
	assert.Equal(t, "A sweeping tale of the sea.", out.Value)
	assert.Equal(t, "A sweeping tale of the sea.", out.RawCompletion)
	assert.Equal(t, record.OriginCompletion, out.Origin)
	assert.Equal(t, 1, completer.calls)
}

func TestExecuteCompletionFallback(t *testing.T) {
	completer := &stubCompleter{err: errors.New("retries exhausted")}
	env := &Env{
		Record:    record.New(map[string]string{"title": "The Voyage", "contributor": "A. Mariner"}),
		Accessors: record.NewAccessorMap(nil),
		Completer: completer,
	}

	out := Execute(context.Background(), Completion("book_description", "{title} by {contributor}."), env)
	require.Equal(t, StatusValue, out.Status)
	assert.Equal(t, "The Voyage by A. Mariner.", out.Value)
	assert.Equal(t, record.OriginFallback, out.Origin)
	assert.Empty(t, out.RawCompletion)
	assert.Contains(t, out.Warning, "completion fallback")
}

func TestExecuteCompletionGenericPlaceholder(t *testing.T) {
	env := &Env{
		Record:    record.New(map[string]string{"title": "The Voyage"}),
		Accessors: record.NewAccessorMap(nil),
		// No completer configured at all
	}

	out := Execute(context.Background(), Completion("book_description", ""), env)
	require.Equal(t, StatusValue, out.Status)
	assert.Equal(t, "Information for The Voyage is forthcoming.", out.Value)
	assert.Equal(t, record.OriginFallback, out.Origin)
}

func TestInterpolate(t *testing.T) {
	rec := record.New(map[string]string{"title": "X", "pages": "100"})

	assert.Equal(t, "X has 100 pages", interpolate("{title} has {pages} pages", rec))
	assert.Equal(t, "missing: ", interpolate("missing: {nope}", rec))
	assert.Equal(t, "", interpolate("", rec))
}
