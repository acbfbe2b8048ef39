// Package extract turns a spoken transcript into a ProblemReport using the
// Gemini generateContent REST API.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rbright/segnala/internal/report"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Model            string
	BaseURL          string
	Timeout          time.Duration
	Location         *time.Location
	CategoryLanguage language.Tag
	Now              func() time.Time
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// Client calls Gemini once per transcript. It never retries.
type Client struct {
	cred       *Credential
	httpClient *http.Client
	baseURL    string
	model      string
	location   *time.Location
	category   language.Tag
	now        func() time.Time
	logger     *slog.Logger
}

// NewClient builds a client that reads its key from cred on every call.
func NewClient(cred *Credential, opts Options) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.CategoryLanguage == language.Und {
		opts.CategoryLanguage = language.Italian
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		cred:       cred,
		httpClient: opts.HTTPClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		model:      opts.Model,
		location:   opts.Location,
		category:   opts.CategoryLanguage,
		now:        opts.Now,
		logger:     opts.Logger,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type schema struct {
	Type       string            `json:"type"`
	Properties map[string]schema `json:"properties,omitempty"`
	Required   []string          `json:"required,omitempty"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType"`
	ResponseSchema   *schema `json:"responseSchema"`
}

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

var reportFields = []string{"date", "odl", "description", "problemType", "operator"}

func reportSchema() *schema {
	props := make(map[string]schema, len(reportFields))
	for _, name := range reportFields {
		props[name] = schema{Type: "STRING"}
	}
	return &schema{Type: "OBJECT", Properties: props, Required: reportFields}
}

// Extract sends transcript to Gemini and returns the validated report.
func (c *Client) Extract(ctx context.Context, transcript string) (report.ProblemReport, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return report.ProblemReport{}, ErrEmptyTranscript
	}

	key, ok := c.cred.Key()
	if !ok {
		return report.ProblemReport{}, &Error{Kind: KindConfig, Message: "no API key configured"}
	}

	today := c.now().In(c.location)
	body, err := json.Marshal(request{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: BuildPrompt(transcript, today)}},
		}},
		GenerationConfig: generationConfig{
			Temperature:      0.1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   reportSchema(),
		},
	})
	if err != nil {
		return report.ProblemReport{}, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return report.ProblemReport{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return report.ProblemReport{}, &Error{Kind: KindBackend, Message: "sending request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return report.ProblemReport{}, &Error{Kind: KindBackend, StatusCode: resp.StatusCode, Message: "reading response", Err: err}
	}
	c.logDebug("gemini response", "status", resp.StatusCode, "bytes", len(respBody), "elapsed_ms", time.Since(started).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		classified := classifyHTTPError(resp.StatusCode, respBody)
		if classified.Kind == KindAuth && c.cred.Source() == "runtime" {
			c.cred.Reject()
		}
		return report.ProblemReport{}, classified
	}

	return c.parse(respBody, today)
}

// parse decodes the first candidate's JSON text into a report.
func (c *Client) parse(body []byte, today time.Time) (report.ProblemReport, error) {
	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return report.ProblemReport{}, &Error{Kind: KindParse, Message: "decoding response envelope", Err: err}
	}
	if len(decoded.Candidates) == 0 {
		return report.ProblemReport{}, &Error{Kind: KindParse, Message: "response has no candidates"}
	}

	var text strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	raw := stripCodeFence(text.String())
	if raw == "" {
		return report.ProblemReport{}, &Error{Kind: KindParse, Message: "response text is empty"}
	}

	var fields map[string]*string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return report.ProblemReport{}, &Error{Kind: KindParse, Message: "decoding report json", Err: err}
	}
	for _, name := range reportFields {
		if fields[name] == nil {
			return report.ProblemReport{}, &Error{Kind: KindParse, Message: fmt.Sprintf("report field %q missing", name)}
		}
	}

	r := report.ProblemReport{
		Date:        strings.TrimSpace(*fields["date"]),
		ODL:         strings.TrimSpace(*fields["odl"]),
		Description: strings.TrimSpace(*fields["description"]),
		ProblemType: c.normalizeCategory(*fields["problemType"]),
		Operator:    strings.TrimSpace(*fields["operator"]),
	}
	if r.Date == "" {
		r.Date = today.Format(DateLayout)
	}
	if r.ODL == "" {
		r.ODL = report.NotAvailable
	}
	if r.Operator == "" {
		r.Operator = report.NotAvailable
	}
	if err := r.Validate(); err != nil {
		return report.ProblemReport{}, &Error{Kind: KindParse, Message: "incomplete report", Err: err}
	}
	return r, nil
}

// normalizeCategory keeps the first word and title-cases it. Casers are
// stateful, so one is built per call.
func (c *Client) normalizeCategory(raw string) string {
	words := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '/' || r == ';' || r == '\n' || r == '\t'
	})
	if len(words) == 0 {
		return ""
	}
	return cases.Title(c.category).String(words[0])
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if newline := strings.IndexByte(text, '\n'); newline >= 0 {
		text = text[newline+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
