package download

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Downloader
type Downloader interface {
	Download(sourceURL string, outFilePath string) error
}
