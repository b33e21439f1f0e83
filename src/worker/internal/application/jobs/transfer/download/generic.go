package download

import (
	"io"
	"net/http"
	"os"

	"github.com/apex/log"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
)

var _ Downloader = GenericDLer{}

func NewGenericDLer() GenericDLer {
	return GenericDLer{}
}

// GenericDLer fetches a direct audio file URL over plain HTTP.
type GenericDLer struct{}

func (g GenericDLer) Download(sourceURL string, outFilePath string) error {
	log.WithField("source_url", sourceURL).Info("Downloading file over HTTP")

	response, err := http.Get(sourceURL)
	if err != nil {
		return cerr.Field("source_url", sourceURL).
			Wrap(err).Error("Failed to fetch source URL")
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return cerr.Fields(cerr.F{
			"source_url": sourceURL,
			"status":     response.StatusCode,
		}).Error("Source URL returned a non-OK status")
	}

	outFile, err := os.Create(outFilePath)
	if err != nil {
		return cerr.Field("out_file_path", outFilePath).
			Wrap(err).Error("Failed to create output file")
	}
	defer outFile.Close()

	_, err = io.Copy(outFile, response.Body)
	if err != nil {
		return cerr.Field("out_file_path", outFilePath).
			Wrap(err).Error("Failed to write downloaded file")
	}

	return nil
}
