package clipper

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	"shared-menu/internal/dish"
	"shared-menu/internal/llm"
	"shared-menu/internal/logger"
	"shared-menu/internal/shared"

	"github.com/PuerkitoBio/goquery"
)

//go:embed clipper_prompt.md
var clipperPrompt string

const (
	clipperName   = "DishClipper"
	clipperSystem = "You are a recipe extraction expert. Always answer with a single JSON object and nothing else."
	// maxPageText caps the page text sent to the model.
	maxPageText = 8000
)

var clipperTemplate = template.Must(template.New("clipper").Parse(clipperPrompt))

// Clipper imports dishes from recipe pages.
type Clipper struct {
	textGen    llm.TextGenerator
	usage      shared.UsageRecorder
	httpClient *http.Client
}

// ExtractedDish represents the data structured by the AI.
type ExtractedDish struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	CookingTimeMinutes int               `json:"cooking_time_minutes"`
	Ingredients        []dish.Ingredient `json:"ingredients"`
}

// page is what we keep from the fetched HTML.
type page struct {
	Title       string
	Description string
	ImageURL    string
	Text        string
}

// NewClipper creates a new Clipper instance.
func NewClipper(textGen llm.TextGenerator, usage shared.UsageRecorder) *Clipper {
	if usage == nil {
		usage = shared.DiscardUsage{}
	}
	return &Clipper{
		textGen:    textGen,
		usage:      usage,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ClipURL fetches the page at rawURL and turns it into a dish input ready
// to be stored by the importing side.
func (c *Clipper) ClipURL(ctx context.Context, rawURL string) (dish.Input, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return dish.Input{}, fmt.Errorf("invalid url %q", rawURL)
	}

	p, err := c.fetchPage(ctx, u)
	if err != nil {
		return dish.Input{}, fmt.Errorf("failed to fetch content: %w", err)
	}

	extracted, err := c.extract(ctx, p)
	if err != nil {
		return dish.Input{}, err
	}

	in := dish.Input{
		Name:               firstNonEmpty(extracted.Name, p.Title),
		Description:        firstNonEmpty(p.Description, extracted.Description),
		ImageURL:           p.ImageURL,
		CookingTimeMinutes: roundCookingTime(extracted.CookingTimeMinutes),
		Ingredients:        extracted.Ingredients,
	}
	// Blank quantities would fail dish validation.
	for i := range in.Ingredients {
		if strings.TrimSpace(in.Ingredients[i].Quantity) == "" {
			in.Ingredients[i].Quantity = "to taste"
		}
	}
	return in, nil
}

func (c *Clipper) extract(ctx context.Context, p page) (ExtractedDish, error) {
	start := time.Now()

	var buf bytes.Buffer
	if err := clipperTemplate.Execute(&buf, p); err != nil {
		return ExtractedDish{}, fmt.Errorf("failed to build clipper prompt: %w", err)
	}

	resp, err := c.textGen.GenerateContent(ctx, llm.Request{
		System:      clipperSystem,
		Prompt:      buf.String(),
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	if err != nil {
		return ExtractedDish{}, fmt.Errorf("ai extraction failed: %w", err)
	}

	meta := shared.AgentMeta{AgentName: clipperName, Usage: resp.Usage, Latency: time.Since(start)}
	if err := c.usage.RecordMeta(meta); err != nil {
		logger.Warn("failed to record %s usage: %v", clipperName, err)
	}

	var extracted ExtractedDish
	if err := json.Unmarshal([]byte(resp.Content), &extracted); err != nil {
		return ExtractedDish{}, fmt.Errorf("failed to parse AI response: %w", err)
	}
	return extracted, nil
}

func (c *Clipper) fetchPage(ctx context.Context, u *url.URL) (page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return page{}, err
	}
	req.Header.Set("User-Agent", "shared-menu/1.0 (+dish import)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return page{}, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return page{}, err
	}

	p := page{
		Title:       firstNonEmpty(meta(doc, "og:title"), strings.TrimSpace(doc.Find("title").First().Text())),
		Description: firstNonEmpty(meta(doc, "og:description"), meta(doc, "description")),
		ImageURL:    resolve(u, meta(doc, "og:image")),
	}

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, noscript, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if r := []rune(text); len(r) > maxPageText {
		text = string(r[:maxPageText])
	}
	p.Text = text
	return p, nil
}

// meta reads a <meta> tag by property or name.
func meta(doc *goquery.Document, key string) string {
	for _, attr := range []string{"property", "name"} {
		if v, ok := doc.Find(fmt.Sprintf(`meta[%s="%s"]`, attr, key)).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(r).String()
}

// roundCookingTime snaps minutes onto the allowed 5 minute grid.
// Zero keeps the default.
func roundCookingTime(minutes int) int {
	if minutes <= 0 {
		return 0
	}
	rounded := (minutes + dish.CookingTimeStep/2) / dish.CookingTimeStep * dish.CookingTimeStep
	if rounded < dish.MinCookingTime {
		return dish.MinCookingTime
	}
	if rounded > dish.MaxCookingTime {
		return dish.MaxCookingTime
	}
	return rounded
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
