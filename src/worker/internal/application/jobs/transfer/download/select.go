package download

import "strings"

func NewSelectDLer(youtubedler YoutubeDLer, genericdler GenericDLer) SelectDLer {
	return SelectDLer{
		youtubedler: youtubedler,
		genericdler: genericdler,
	}
}

// SelectDLer picks the downloader by the shape of the source URL:
// youtube-dl for video platform links, plain HTTP for everything else.
type SelectDLer struct {
	youtubedler YoutubeDLer
	genericdler GenericDLer
}

var videoHosts = []string{"youtube.com", "youtu.be", "soundcloud.com", "vimeo.com"}

func (s SelectDLer) Download(sourceURL string, outFilePath string) error {
	for _, host := range videoHosts {
		if strings.Contains(sourceURL, host) {
			return s.youtubedler.Download(sourceURL, outFilePath)
		}
	}

	return s.genericdler.Download(sourceURL, outFilePath)
}
