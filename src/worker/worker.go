package main

import (
	"path"

	"github.com/harmonix-audio/harmonix-be/src/shared/config"
	"github.com/harmonix-audio/harmonix-be/src/shared/config/dev"
	"github.com/harmonix-audio/harmonix-be/src/shared/config/envvar"
	"github.com/harmonix-audio/harmonix-be/src/shared/config/local"
	"github.com/harmonix-audio/harmonix-be/src/shared/config/prod"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/env"
	"github.com/harmonix-audio/harmonix-be/src/worker/application"
)

func main() {
	var appConfig application.Config

	switch env.Get() {
	case env.Production:
		appConfig = application.Config{
			DynamoConfig: config.ProdDynamo{
				AccessKeyID:     envvar.MustGet(envvar.AWS_ACCESS_KEY_ID),
				SecretAccessKey: envvar.MustGet(envvar.AWS_SECRET_ACCESS_KEY),
				Region:          prod.DynamoDBRegion,
			},
			CloudStorageConfig: config.ProdCloudStorage{
				StorageHost: prod.GOOGLE_STORAGE_HOST,
				SecretKey:   envvar.MustGet(envvar.GOOGLE_CLOUD_KEY),
				BucketName:  envvar.MustGet(envvar.GOOGLE_CLOUD_STORAGE_BUCKET_NAME),
			},
			RabbitMQURL:             envvar.MustGet(envvar.RABBITMQ_URL),
			RabbitMQQueueName:       envvar.MustGet(envvar.RABBITMQ_QUEUE_NAME),
			Pipeline:                prodPipeline(),
			YoutubeDLBinPath:        envvar.MustGet(envvar.YOUTUBEDL_BIN_PATH),
			YoutubeDLWorkingDirPath: envvar.MustGet(envvar.YOUTUBEDL_WORKING_DIR_PATH),
		}

	case env.Development:
		appConfig = application.Config{
			DynamoConfig: dev.DynamoConfig,
			// using prod for now because the local fake GCS doesn't persist
			CloudStorageConfig: config.ProdCloudStorage{
				StorageHost: prod.GOOGLE_STORAGE_HOST,
				SecretKey:   envvar.MustGet(envvar.GOOGLE_CLOUD_KEY),
				BucketName:  envvar.MustGet(envvar.GOOGLE_CLOUD_STORAGE_BUCKET_NAME),
			},
			RabbitMQURL:             dev.RabbitMQHost,
			RabbitMQQueueName:       dev.RabbitMQQueueName,
			Pipeline:                devPipeline(),
			YoutubeDLBinPath:        config.YoutubeDLPath(),
			YoutubeDLWorkingDirPath: path.Join(local.ProjectRoot(), "/src/worker/wd/youtube-dl"),
		}
	default:
		panic("Unexpected environment")
	}

	app := application.NewApp(appConfig)
	if err := app.Start(); err != nil {
		panic(err)
	}
}

func prodPipeline() config.Pipeline {
	pipeline := config.DefaultPipeline()

	pipeline.FFmpegBinPath = envvar.MustGet(envvar.FFMPEG_BIN_PATH)
	pipeline.FFprobeBinPath = envvar.MustGet(envvar.FFPROBE_BIN_PATH)
	pipeline.DemucsBinPath = envvar.MustGet(envvar.DEMUCS_BIN_PATH)
	pipeline.DemucsWorkingDir = envvar.MustGet(envvar.DEMUCS_WORKING_DIR_PATH)
	pipeline.Device = envvar.GetOrDefault(envvar.SEPARATION_DEVICE, pipeline.Device)
	pipeline.InstrumentModelPath = envvar.GetOrDefault(envvar.INSTRUMENT_MODEL_PATH, "")
	pipeline.ModelCacheDir = envvar.GetOrDefault(envvar.MODEL_CACHE_DIR_PATH, "")
	pipeline.TranscriptionServiceURL = envvar.MustGet(envvar.TRANSCRIPTION_SERVICE_URL)

	return pipeline
}

func devPipeline() config.Pipeline {
	pipeline := config.DefaultPipeline()

	pipeline.FFmpegBinPath = config.FFmpegPath()
	pipeline.FFprobeBinPath = config.FFprobePath()
	pipeline.DemucsBinPath = config.DemucsPath()
	pipeline.DemucsWorkingDir = path.Join(local.ProjectRoot(), "/src/worker/wd/demucs")
	pipeline.ModelCacheDir = path.Join(local.ProjectRoot(), "/src/worker/wd/models")
	pipeline.InstrumentModelPath = envvar.GetOrDefault(envvar.INSTRUMENT_MODEL_PATH, "")
	pipeline.TranscriptionServiceURL = dev.TranscriptionServiceURL

	return pipeline
}
