package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
)

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words"`
}

type Transcript struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

//counterfeiter:generate . Transcriber

// Transcriber turns a vocals buffer into timed text segments.
type Transcriber interface {
	Transcribe(ctx context.Context, vocals audio.Buffer, languageHint string) (Transcript, error)
}

// HTTPClient talks to the transcription service, which hosts the
// pretrained speech model behind a multipart upload endpoint.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ Transcriber = HTTPClient{}

func NewHTTPClient(baseURL string) HTTPClient {
	return HTTPClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

func (c HTTPClient) Transcribe(ctx context.Context, vocals audio.Buffer, languageHint string) (Transcript, error) {
	wavData, err := audio.EncodeWAV(vocals)
	if err != nil {
		return Transcript{}, cerr.Wrap(err).Error("Failed to encode vocals for transcription")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filePart, err := writer.CreateFormFile("audio", "vocals.wav")
	if err != nil {
		return Transcript{}, cerr.Wrap(err).Error("Failed to create transcription upload part")
	}

	_, err = filePart.Write(wavData)
	if err != nil {
		return Transcript{}, cerr.Wrap(err).Error("Failed to write transcription upload part")
	}

	err = writer.WriteField("language", languageHint)
	if err != nil {
		return Transcript{}, cerr.Wrap(err).Error("Failed to write transcription language field")
	}

	err = writer.Close()
	if err != nil {
		return Transcript{}, cerr.Wrap(err).Error("Failed to finalize transcription upload")
	}

	url := fmt.Sprintf("%s/transcribe", c.baseURL)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return Transcript{}, cerr.Field("url", url).
			Wrap(err).Error("Failed to create transcription request")
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())

	response, err := c.client.Do(request)
	if err != nil {
		return Transcript{}, cerr.Field("url", url).
			Wrap(err).Error("Transcription request failed")
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return Transcript{}, cerr.Wrap(err).Error("Failed to read transcription response")
	}

	if response.StatusCode != http.StatusOK {
		return Transcript{}, cerr.Fields(cerr.F{
			"status": response.StatusCode,
			"body":   string(responseBody),
		}).Error("Transcription service returned an error")
	}

	transcript := Transcript{}
	err = json.Unmarshal(responseBody, &transcript)
	if err != nil {
		return Transcript{}, cerr.Wrap(err).Error("Failed to decode transcription response")
	}

	return transcript, nil
}
