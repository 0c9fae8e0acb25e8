package speech

import (
	"context"
	"fmt"
	"os"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Keeps request bodies under the API's 5000-byte input cap.
const googleSegmentLimit = 4500

// GoogleClient synthesizes speech with the Cloud Text-to-Speech API.
// LINEAR16 responses carry a WAV header, so segments concatenate the
// same way Azure's do.
type GoogleClient struct {
	client *texttospeech.Client
}

func NewGoogleClient(ctx context.Context) (*GoogleClient, error) {
	c, err := texttospeech.NewClient(ctx, gcpClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("texttospeech client: %w", err)
	}
	return &GoogleClient{client: c}, nil
}

// gcpClientOptions resolves credentials from the environment. A value
// starting with '{' is inline JSON, anything else a file path.
func gcpClientOptions() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (c *GoogleClient) Name() string { return ProviderGoogle }

func (c *GoogleClient) SegmentLimit() int { return googleSegmentLimit }

func (c *GoogleClient) Synthesize(ctx context.Context, text, voice, outPath string) error {
	resp, err := c.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voiceLanguage(voice),
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_LINEAR16,
		},
	})
	if err != nil {
		if s, ok := status.FromError(err); ok {
			switch s.Code() {
			case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
				return &RetryableError{
					StatusCode: int(s.Code()),
					Message:    s.Message(),
				}
			}
		}
		return fmt.Errorf("google tts: %w", err)
	}

	if err := os.WriteFile(outPath, resp.GetAudioContent(), 0o644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (c *GoogleClient) Close() error {
	return c.client.Close()
}
