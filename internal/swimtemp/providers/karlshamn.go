package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/i474232898/badtemp-karlshamn/internal/swimtemp"
)

const (
	DefaultDiscoveryURL = "https://www.karlshamnenergi.se/app/badtemperaturer/"
	DefaultPollURL      = "https://www.karlshamnenergi.se/wp-content/themes/karlshamnenergi/ajax/iot-ansluten/IOTAnsluten.php"
)

// scriptPath is the chain of elements leading from <body> to the script that
// embeds the location list. Each step takes the first matching descendant.
var scriptPath = []string{"div", "div", "main", "article", "div", "script"}

// KarlshamnSource implements swimtemp.Source for Karlshamn Energi's swim
// area temperature page.
type KarlshamnSource struct {
	name         string
	discoveryURL string
	pollURL      string
	httpCfg      HTTPClientConfig
}

// NewKarlshamnSource creates the source. Empty URLs fall back to the
// provider's public endpoints.
func NewKarlshamnSource(client *http.Client, discoveryURL, pollURL string) *KarlshamnSource {
	if discoveryURL == "" {
		discoveryURL = DefaultDiscoveryURL
	}
	if pollURL == "" {
		pollURL = DefaultPollURL
	}
	return &KarlshamnSource{
		name:         "karlshamnenergi",
		discoveryURL: discoveryURL,
		pollURL:      pollURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Breaker: NewBreaker("karlshamnenergi"),
		},
	}
}

func (s *KarlshamnSource) Name() string {
	return s.name
}

// Discover fetches the provider page and extracts the embedded location list.
func (s *KarlshamnSource) Discover(ctx context.Context) ([]swimtemp.DiscoveryRecord, error) {
	req, err := http.NewRequest(http.MethodGet, s.discoveryURL, nil)
	if err != nil {
		return nil, &swimtemp.FetchError{Op: http.MethodGet, URL: s.discoveryURL, Err: err}
	}

	body, err := doRequest(ctx, s.httpCfg, req)
	if err != nil {
		return nil, err
	}
	return ParseDiscoveryPage(body)
}

// Readings posts the identifier list and decodes the batched readings.
func (s *KarlshamnSource) Readings(ctx context.Context, ids []string) ([]swimtemp.PollRecord, error) {
	if ids == nil {
		ids = []string{}
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode ids: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.pollURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &swimtemp.FetchError{Op: http.MethodPost, URL: s.pollURL, Err: err}
	}
	// The provider's own client sends this non-standard "Content" header too.
	req.Header.Set("Content", "application/json")
	req.Header.Set("Content-Type", "application/json")

	body, err := doRequest(ctx, s.httpCfg, req)
	if err != nil {
		return nil, err
	}

	var records []swimtemp.PollRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &swimtemp.ParseError{What: "poll response", Err: err}
	}
	return records, nil
}

// ParseDiscoveryPage walks body > div > div > main > article > div > script
// and decodes the single-quoted JSON literal the script assigns.
func ParseDiscoveryPage(page []byte) ([]swimtemp.DiscoveryRecord, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, &swimtemp.ParseError{What: "discovery page", Err: err}
	}

	node := findElement(doc, "body")
	if node == nil {
		return nil, &swimtemp.ParseError{What: "discovery page", Err: errors.New("no <body> element")}
	}
	for _, tag := range scriptPath {
		node = findElement(node, tag)
		if node == nil {
			return nil, &swimtemp.ParseError{
				What: "discovery page",
				Err:  fmt.Errorf("no <%s> on path body>%s", tag, strings.Join(scriptPath, ">")),
			}
		}
	}

	literal, err := quotedLiteral(textContent(node))
	if err != nil {
		return nil, err
	}

	var records []swimtemp.DiscoveryRecord
	if err := json.Unmarshal([]byte(literal), &records); err != nil {
		return nil, &swimtemp.ParseError{What: "discovery json", Err: err}
	}
	return records, nil
}

// quotedLiteral returns the text between the first and second single quote.
func quotedLiteral(script string) (string, error) {
	parts := strings.Split(script, "'")
	if len(parts) < 2 {
		return "", &swimtemp.ParseError{What: "discovery script", Err: errors.New("no single-quoted literal")}
	}
	return parts[1], nil
}

// findElement returns the first element below n (depth first, document order)
// whose tag is name.
func findElement(n *html.Node, name string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == name {
			return c
		}
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
