package main

import (
	"strings"

	"github.com/harmonix-audio/harmonix-be/src/server/application"
	"github.com/harmonix-audio/harmonix-be/src/shared/config"
	"github.com/harmonix-audio/harmonix-be/src/shared/config/dev"
	"github.com/harmonix-audio/harmonix-be/src/shared/config/envvar"
	"github.com/harmonix-audio/harmonix-be/src/shared/config/prod"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/env"
)

func main() {
	var appConfig application.Config

	switch env.Get() {
	case env.Production:
		commaSeparatedOrigins := envvar.MustGet("ALLOWED_FE_ORIGINS")
		allowedOrigins := strings.Split(commaSeparatedOrigins, ",")

		appConfig = application.Config{
			DynamoConfig: config.ProdDynamo{
				AccessKeyID:     envvar.MustGet(envvar.AWS_ACCESS_KEY_ID),
				SecretAccessKey: envvar.MustGet(envvar.AWS_SECRET_ACCESS_KEY),
				Region:          prod.DynamoDBRegion,
			},
			RabbitMQURL:        envvar.MustGet(envvar.RABBITMQ_URL),
			RabbitMQQueueName:  envvar.MustGet(envvar.RABBITMQ_QUEUE_NAME),
			Pipeline:           prodPipeline(),
			CORSAllowedOrigins: allowedOrigins,
			Port:               ":5000",
			Log:                true,
		}

	case env.Development:
		appConfig = application.Config{
			DynamoConfig:       dev.DynamoConfig,
			RabbitMQURL:        dev.RabbitMQHost,
			RabbitMQQueueName:  dev.RabbitMQQueueName,
			Pipeline:           devPipeline(),
			CORSAllowedOrigins: []string{"*"},
			Port:               ":5000",
			Log:                true,
		}

	default:
		panic("Unexpected environment")
	}

	app := application.NewApp(appConfig)
	if err := app.Start(); err != nil {
		panic(err)
	}
}

// the server only runs the analysis stages, the separation fields of
// the pipeline config stay unset here.
func prodPipeline() config.Pipeline {
	pipeline := config.DefaultPipeline()

	pipeline.FFmpegBinPath = envvar.MustGet(envvar.FFMPEG_BIN_PATH)
	pipeline.FFprobeBinPath = envvar.MustGet(envvar.FFPROBE_BIN_PATH)
	pipeline.InstrumentModelPath = envvar.GetOrDefault(envvar.INSTRUMENT_MODEL_PATH, "")

	return pipeline
}

func devPipeline() config.Pipeline {
	pipeline := config.DefaultPipeline()

	pipeline.FFmpegBinPath = config.FFmpegPath()
	pipeline.FFprobeBinPath = config.FFprobePath()
	pipeline.InstrumentModelPath = envvar.GetOrDefault(envvar.INSTRUMENT_MODEL_PATH, "")

	return pipeline
}
