package namespaces

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/pkg/models"
)

const httpHeadersStorage = "http-headers"

// httpRequestTimeout bounds a single http-request dispatch.
const httpRequestTimeout = 30 * time.Second

// httpTargetVariable names the task variable holding the base host.
const httpTargetVariable = "HTTP_TARGET"

// targetURL joins the request path to the HTTP_TARGET variable, defaulting
// the scheme to http when absent.
func targetURL(s *state.State, page string) (*url.URL, error) {
	target, ok := s.Variable(httpTargetVariable)
	if !ok {
		return nil, fmt.Errorf("%s not defined", httpTargetVariable)
	}
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("can't parse %s: %w", target, err)
	}
	joined, err := base.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("can't join %s to %s: %w", page, target, err)
	}
	return joined, nil
}

// renderResponse flattens status line, headers and a textual body. Binary
// bodies are replaced with a placeholder.
func renderResponse(resp *http.Response) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	for key, vals := range resp.Header {
		for _, v := range vals {
			fmt.Fprintf(&b, "%s: %s\n", key, v)
		}
	}
	b.WriteString("\n\n")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "text/"), strings.HasPrefix(contentType, "application/"):
		if isBinary(body) {
			b.WriteString("<BINARY DATA>")
		} else {
			b.Write(body)
		}
	default:
		b.WriteString("<BINARY DATA>")
	}
	return b.String(), nil
}

func isBinary(data []byte) bool {
	for _, c := range data {
		if c == 0 || (c < 32 && c != 9 && c != 10 && c != 13) {
			return true
		}
	}
	return false
}

// HTTP lets the model probe a web target defined by the HTTP_TARGET task
// variable, with a persistent header set it can edit.
func HTTP() state.Namespace {
	client := &http.Client{}
	return state.Namespace{
		Name:        "Web",
		Description: "You can use these actions to perform HTTP requests against the target.",
		Storages: []state.Descriptor{
			state.Tagged(httpHeadersStorage).Predefine(map[string]string{
				"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
				"Accept-Encoding": "deflate",
			}),
		},
		Actions: []state.Action{
			{
				Name:              "http-set-header",
				Description:       "Use this action to set a header for subsequent requests.",
				ExampleAttributes: map[string]string{"name": "X-Header"},
				ExamplePayload:    strptr("some-value-for-the-header"),
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					st, err := s.GetStorage(httpHeadersStorage)
					if err != nil {
						return nil, err
					}
					if err := st.AddTagged(attrs["name"], *payload); err != nil {
						return nil, err
					}
					out := models.Text("header set")
					return &out, nil
				},
			},
			{
				Name:        "http-clear-headers",
				Description: "Use this action to remove all headers set so far.",
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					st, err := s.GetStorage(httpHeadersStorage)
					if err != nil {
						return nil, err
					}
					st.Clear()
					out := models.Text("http headers cleared")
					return &out, nil
				},
			},
			{
				Name:              "http-request",
				Description:       "Use this action to perform an HTTP request against the target, the payload is the path with optional query string.",
				ExamplePayload:    strptr("/index.php?id=1"),
				ExampleAttributes: map[string]string{"method": "GET"},
				RequiredVariables: []string{httpTargetVariable},
				Timeout:           httpRequestTimeout,
				Run: func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
					target, err := targetURL(s, *payload)
					if err != nil {
						return nil, err
					}
					method := strings.ToUpper(attrs["method"])

					var body io.Reader
					query := target.RawQuery
					if query != "" && method != http.MethodGet {
						// non-GET parameters travel as a form body instead
						body = strings.NewReader(query)
						target.RawQuery = ""
					}

					req, err := http.NewRequest(method, target.String(), body)
					if err != nil {
						return nil, err
					}
					if body != nil {
						req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
					}
					if st, err := s.GetStorage(httpHeadersStorage); err == nil {
						for _, e := range st.Entries() {
							req.Header.Set(e.Key, e.Entry.Data)
						}
					}

					resp, err := client.Do(req)
					if err != nil {
						return nil, err
					}
					defer resp.Body.Close()

					rendered, err := renderResponse(resp)
					if err != nil {
						return nil, err
					}
					if resp.StatusCode >= 400 {
						return nil, fmt.Errorf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
					}
					out := models.Text(rendered)
					return &out, nil
				},
			},
		},
	}
}
