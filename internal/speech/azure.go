package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	azureSegmentLimit = 3000
	azureOutputFormat = "riff-24khz-16bit-mono-pcm"
)

// AzureClient synthesizes speech through the Azure Cognitive Services
// REST endpoint, returning WAV audio.
type AzureClient struct {
	key        string
	region     string
	endpoint   string
	httpClient *http.Client
}

func NewAzureClient(key, region string) *AzureClient {
	return &AzureClient{
		key:      key,
		region:   region,
		endpoint: fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *AzureClient) Name() string { return ProviderAzure }

func (c *AzureClient) SegmentLimit() int { return azureSegmentLimit }

func (c *AzureClient) Synthesize(ctx context.Context, text, voice, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(buildSSML(text, voice)))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", azureOutputFormat)
	req.Header.Set("User-Agent", "mathcast")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("azure tts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("azure tts status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(outPath)
		return fmt.Errorf("write audio: %w", err)
	}
	return f.Close()
}

// Close releases resources.
func (c *AzureClient) Close() {
	c.httpClient.CloseIdleConnections()
}

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func buildSSML(text, voice string) string {
	var b strings.Builder
	b.WriteString("<speak version='1.0' xml:lang='")
	b.WriteString(voiceLanguage(voice))
	b.WriteString("'><voice name='")
	b.WriteString(voice)
	b.WriteString("'>")
	b.WriteString(ssmlEscaper.Replace(text))
	b.WriteString("</voice></speak>")
	return b.String()
}
