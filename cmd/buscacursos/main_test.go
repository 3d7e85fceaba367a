package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/buscacursos-bot-go/internal/bot"
	"github.com/garyellow/buscacursos-bot-go/internal/config"
	"github.com/garyellow/buscacursos-bot-go/internal/render"
)

// fakeCatalog serves the result page fixture and records the queries.
type fakeCatalog struct {
	mu      sync.Mutex
	queries []url.Values
}

func newFakeCatalog(t *testing.T) (*fakeCatalog, string) {
	t.Helper()
	page, err := os.ReadFile("../../internal/scraper/buscacursos/testdata/resultados.html")
	require.NoError(t, err)

	f := &fakeCatalog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.queries = append(f.queries, r.URL.Query())
		f.mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}))
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func (f *fakeCatalog) last() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return nil
	}
	return f.queries[len(f.queries)-1]
}

// setEnv points the configuration at the fake catalog.
func setEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv(config.EnvCatalogBaseURL, baseURL)
	t.Setenv(config.EnvPeriodYear, "2017")
	t.Setenv(config.EnvPeriodTerm, "2")
	t.Setenv(config.EnvPaginationSize, "")
	t.Setenv(config.EnvSessionBackend, "")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSearch(t *testing.T) {
	fake, baseURL := newFakeCatalog(t)
	setEnv(t, baseURL)

	out, err := execute(t, "", "search", "IIC2233")
	require.NoError(t, err)

	assert.Contains(t, out, "2017-2")
	assert.Contains(t, out, "10865")
	assert.Contains(t, out, "10866")
	assert.Contains(t, out, "Programación Avanzada")
	assert.Equal(t, "IIC2233", fake.last().Get("cxml_sigla"))
	assert.Equal(t, "2017-2", fake.last().Get("cxml_semestre"))
}

func TestSearch_Flags(t *testing.T) {
	fake, baseURL := newFakeCatalog(t)
	setEnv(t, baseURL)

	out, err := execute(t, "", "search", "--year", "2016", "--term", "1", "--page-size", "1", "10865")
	require.NoError(t, err)

	assert.Equal(t, "2016-1", fake.last().Get("cxml_semestre"))
	assert.Equal(t, "10865", fake.last().Get("cxml_nrc"))
	assert.Contains(t, out, "10865")
	assert.NotContains(t, out, "10866", "only the first page is printed")
}

func TestSearch_InvalidTerm(t *testing.T) {
	_, baseURL := newFakeCatalog(t)
	setEnv(t, baseURL)

	_, err := execute(t, "", "search", "--term", "9", "IIC2233")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "term")
}

func TestSearch_RequiresQuery(t *testing.T) {
	_, err := execute(t, "", "search")
	assert.Error(t, err)
}

func TestChat(t *testing.T) {
	_, baseURL := newFakeCatalog(t)
	setEnv(t, baseURL)

	out, err := execute(t, "/course IIC2233\n:next\n:quit\n", "chat", "--page-size", "1")
	require.NoError(t, err)

	first := strings.Index(out, "10865")
	second := strings.Index(out, "10866")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first, "the second page follows the first")
	assert.Contains(t, out, "[1] IIC2233-1")
}

func TestChat_UnknownInstruction(t *testing.T) {
	_, baseURL := newFakeCatalog(t)
	setEnv(t, baseURL)

	out, err := execute(t, ":next\n:dance\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "no next page")
	assert.Contains(t, out, `unknown instruction ":dance"`)
}

func TestChatAction(t *testing.T) {
	t.Parallel()
	renderer := render.MustNew(render.Plain)
	c := &chat{
		renderer: renderer,
		buttons: []bot.Button{
			{Label: "IIC2233-1", Action: bot.Command("course_IIC2233_1")},
			{Label: renderer.Label(render.LabelBack), Action: bot.GoToPage(0)},
			{Label: renderer.Label(render.LabelNext), Action: bot.GoToPage(2)},
		},
	}

	tests := []struct {
		line    string
		want    bot.Action
		wantErr string
	}{
		{line: ":next", want: bot.GoToPage(2)},
		{line: ":back", want: bot.GoToPage(0)},
		{line: ":go 4", want: bot.GoToPage(3)},
		{line: ":1", want: bot.Command("course_IIC2233_1")},
		{line: ":go", wantErr: "usage"},
		{line: ":go 0", wantErr: "invalid page"},
		{line: ":7", wantErr: "no button 7"},
		{line: ":", wantErr: "empty instruction"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			upd, err := c.update(tt.line)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, bot.KindAction, upd.Kind)
			assert.Equal(t, tt.want, upd.Action)
		})
	}
}

func TestChatUpdate(t *testing.T) {
	t.Parallel()
	c := &chat{user: bot.User{ID: "local"}}

	upd, err := c.update("/course IIC2233 2")
	require.NoError(t, err)
	assert.Equal(t, bot.KindCommand, upd.Kind)
	assert.Equal(t, "course", upd.Command)
	assert.Equal(t, []string{"IIC2233", "2"}, upd.Args)
	assert.Equal(t, chatConversationID, upd.ConversationID)

	upd, err = c.update("Cálculo")
	require.NoError(t, err)
	assert.Equal(t, bot.KindText, upd.Kind)
	assert.Equal(t, "Cálculo", upd.Text)
}
