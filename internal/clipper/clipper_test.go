package clipper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"shared-menu/internal/llm"
)

// --- Mocks ---

type MockTextGenerator struct {
	Response    string
	ShouldError bool
	LastPrompt  string
}

func (m *MockTextGenerator) GenerateContent(ctx context.Context, req llm.Request) (llm.ContentResponse, error) {
	m.LastPrompt = req.Prompt
	if m.ShouldError {
		return llm.ContentResponse{}, fmt.Errorf("mock ai error")
	}
	return llm.ContentResponse{Content: m.Response}, nil
}

const recipePage = `
<html>
	<head>
		<title>Tasty Recipe | Blog</title>
		<meta property="og:title" content="Grandma's Apple Pie">
		<meta name="description" content="A flaky, buttery pie.">
		<meta property="og:image" content="/img/pie.jpg">
		<script>alert('bad');</script>
	</head>
	<body>
		<h1>Tasty Recipe</h1>
		<div class="ads">Buy stuff!</div>
		<p>Mix   flour and
		water.</p>
		<script>more_bad_stuff()</script>
		<footer>Copyright 2024</footer>
	</body>
</html>`

// --- Tests ---

func TestFetchPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(recipePage))
	}))
	defer ts.Close()

	c := NewClipper(&MockTextGenerator{}, nil)
	u, _ := url.Parse(ts.URL + "/recipes/pie")

	p, err := c.fetchPage(context.Background(), u)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if strings.Contains(p.Text, "alert('bad')") {
		t.Error("Failed to remove <script> tags")
	}
	if strings.Contains(p.Text, "Buy stuff!") {
		t.Error("Failed to remove .ads class")
	}
	if strings.Contains(p.Text, "Copyright 2024") {
		t.Error("Failed to remove <footer>")
	}
	if !strings.Contains(p.Text, "Mix flour and water.") {
		t.Errorf("Expected collapsed body text, got %q", p.Text)
	}
	if p.Title != "Grandma's Apple Pie" {
		t.Errorf("Expected og:title, got %q", p.Title)
	}
	if p.Description != "A flaky, buttery pie." {
		t.Errorf("Expected description, got %q", p.Description)
	}
	if p.ImageURL != ts.URL+"/img/pie.jpg" {
		t.Errorf("Expected absolute image url, got %q", p.ImageURL)
	}
}

func TestClipURL_Success(t *testing.T) {
	aiResponse := `{"name": "Apple Pie", "description": "Sweet", "cooking_time_minutes": 62,
		"ingredients": [{"name": "Apple", "quantity": "4"}, {"name": "Sugar", "quantity": ""}]}`

	mockAI := &MockTextGenerator{Response: aiResponse}
	c := NewClipper(mockAI, nil)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(recipePage))
	}))
	defer ts.Close()

	in, err := c.ClipURL(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("ClipURL failed: %v", err)
	}

	if in.Name != "Apple Pie" {
		t.Errorf("Expected name 'Apple Pie', got '%s'", in.Name)
	}
	if in.Description != "A flaky, buttery pie." {
		t.Errorf("Expected page description to win, got '%s'", in.Description)
	}
	if in.CookingTimeMinutes != 60 {
		t.Errorf("Expected cooking time rounded to 60, got %d", in.CookingTimeMinutes)
	}
	if len(in.Ingredients) != 2 || in.Ingredients[1].Quantity != "to taste" {
		t.Errorf("Unexpected ingredients: %+v", in.Ingredients)
	}
	if err := in.Validate(); err != nil {
		t.Errorf("Expected clipped dish to validate, got %v", err)
	}
	if !strings.Contains(mockAI.LastPrompt, `The page title is "Grandma's Apple Pie"`) {
		t.Error("Expected the prompt to carry the page title")
	}
}

func TestClipURL_Errors(t *testing.T) {
	c := NewClipper(&MockTextGenerator{ShouldError: true}, nil)

	if _, err := c.ClipURL(context.Background(), "ftp://example.com/pie"); err == nil {
		t.Error("Expected error for non-http url")
	}

	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()
	if _, err := c.ClipURL(context.Background(), notFound.URL); err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("Expected status error, got %v", err)
	}

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(recipePage))
	}))
	defer ok.Close()
	if _, err := c.ClipURL(context.Background(), ok.URL); err == nil || !strings.Contains(err.Error(), "ai extraction failed") {
		t.Errorf("Expected ai error, got %v", err)
	}
}

func TestRoundCookingTime(t *testing.T) {
	cases := map[int]int{0: 0, -3: 0, 1: 5, 7: 5, 8: 10, 62: 60, 500: 180}
	for in, want := range cases {
		if got := roundCookingTime(in); got != want {
			t.Errorf("roundCookingTime(%d) = %d, want %d", in, got, want)
		}
	}
}
