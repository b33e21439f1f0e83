package application

import (
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/guregu/dynamo"
	filestore "github.com/harmonix-audio/harmonix-be/src/shared/cloud_storage/store"
	"github.com/harmonix-audio/harmonix-be/src/shared/config"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	jobstorage "github.com/harmonix-audio/harmonix-be/src/shared/job/storage"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	dynamolib "github.com/harmonix-audio/harmonix-be/src/shared/lib/dynamo"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/executor"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/rabbitmq"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/working_dir"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/analyze"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/detect"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/lyrics"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/lyrics/transcription"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/orchestrator"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/preprocess"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/separate"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/separate/demucs"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/job_router"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/process"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/save_results"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/start"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/transfer"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/transfer/download"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/worker"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/lib/storagepath"
	"github.com/rabbitmq/amqp091-go"
	"google.golang.org/api/option"
)

func must[T any](t T, err error) T {
	if err != nil {
		panic(err)
	}

	return t
}

type App struct {
	worker worker.QueueWorker
}

type Config struct {
	RabbitMQURL        string
	RabbitMQQueueName  string
	DynamoConfig       config.Dynamo
	CloudStorageConfig config.CloudStorage

	Pipeline config.Pipeline

	YoutubeDLBinPath        string
	YoutubeDLWorkingDirPath string
}

func NewApp(config Config) App {
	consumerConn := must(amqp091.Dial(config.RabbitMQURL))

	return App{
		worker: newWorker(config, consumerConn),
	}
}

func (a *App) Start() error {
	err := a.worker.Start()
	if err != nil {
		return cerr.Wrap(err).Error("Failed to start worker")
	}

	return nil
}

func (a *App) Stop() {
	a.worker.Stop()
}

func newWorker(config Config, consumerConn *amqp091.Connection) worker.QueueWorker {
	publisher := must(rabbitmq.NewQueuePublisher(config.RabbitMQURL, config.RabbitMQQueueName))

	jobStore := jobstorage.NewDB(newDynamoDB(config.DynamoConfig))
	queueWorker := must(worker.NewQueueWorkerFromConnection(
		consumerConn,
		config.RabbitMQQueueName,
		newJobRouter(config, jobStore, publisher)))

	return queueWorker
}

func newDynamoDB(dynamoConfig config.Dynamo) dynamolib.DynamoDBWrapper {
	dbSession := session.Must(session.NewSession())

	var dbConfig *aws.Config

	switch t := dynamoConfig.(type) {
	case config.ProdDynamo:
		dbConfig = aws.NewConfig().
			WithCredentials(credentials.NewStaticCredentials(
				t.AccessKeyID,
				t.SecretAccessKey,
				"",
			)).
			WithRegion(t.Region)

	case config.LocalDynamo:
		dbConfig = aws.NewConfig().
			WithCredentials(credentials.NewStaticCredentials(
				t.AccessKeyID,
				t.SecretAccessKey,
				"",
			)).
			WithRegion(t.Region).
			WithEndpoint(t.Host)

	default:
		panic("Unexpected dynamo config type")
	}

	return dynamolib.DynamoDBWrapper{
		DB: dynamo.New(dbSession, dbConfig),
	}
}

func newGoogleFileStore(cloudStorageConfig config.CloudStorage) filestore.GoogleFileStore {
	switch t := cloudStorageConfig.(type) {
	case config.ProdCloudStorage:
		return must(filestore.NewGoogleFileStore(
			t.StorageHost,
			option.WithCredentialsJSON([]byte(t.SecretKey)),
		))

	case config.LocalCloudStorage:
		return must(filestore.NewGoogleFileStore(
			t.StorageHost,
			option.WithEndpoint(t.HostEndpoint),
			option.WithAPIKey("fake_api_key"),
		))

	default:
		panic("Unrecognized cloud storage config")
	}
}

func newJobRouter(config Config, jobStore jobentity.Store, publisher rabbitmq.Publisher) job_router.JobRouter {
	pathGenerator := storagepath.Generator{
		Host:   config.CloudStorageConfig.GetStorageHost(),
		Bucket: config.CloudStorageConfig.GetBucket(),
	}

	return job_router.NewJobRouter(
		jobStore,
		publisher,
		start.NewJobHandler(jobStore),
		newTransferJobHandler(config, jobStore, pathGenerator),
		newProcessJobHandler(config, jobStore, pathGenerator),
		save_results.NewJobHandler(jobStore))
}

func newTransferJobHandler(config Config, jobStore jobentity.Store, pathGenerator storagepath.Generator) transfer.JobHandler {
	if err := os.MkdirAll(config.YoutubeDLWorkingDirPath, os.ModePerm); err != nil {
		panic(err)
	}

	youtubedler := download.NewYoutubeDLer(config.YoutubeDLBinPath, executor.BinaryFileExecutor{})
	genericdler := download.NewGenericDLer()

	selectdler := download.NewSelectDLer(youtubedler, genericdler)

	transferrer := must(transfer.NewJobTransferrer(
		selectdler,
		jobStore,
		newGoogleFileStore(config.CloudStorageConfig),
		pathGenerator,
		config.YoutubeDLWorkingDirPath,
	))

	return transfer.NewJobHandler(transferrer, jobStore)
}

func newProcessJobHandler(config Config, jobStore jobentity.Store, pathGenerator storagepath.Generator) process.JobHandler {
	pipelineConfig := config.Pipeline
	if err := pipelineConfig.Validate(); err != nil {
		panic(err)
	}

	workingDir := must(working_dir.NewWorkingDir(pipelineConfig.DemucsWorkingDir))
	if err := os.MkdirAll(workingDir.TempDir(), os.ModePerm); err != nil {
		panic(err)
	}

	commandExecutor := executor.BinaryFileExecutor{}

	pipeline := orchestrator.NewOrchestrator(
		preprocess.New(pipelineConfig, commandExecutor),
		detect.NewDetector(pipelineConfig, commandExecutor),
		analyze.NewAnalyzer(pipelineConfig),
		separate.NewSeparator(
			demucs.NewEngine(
				pipelineConfig.DemucsBinPath,
				pipelineConfig.ModelCacheDir,
				workingDir,
				commandExecutor),
			pipelineConfig.Device),
		lyrics.NewExtractor(
			transcription.NewHTTPClient(pipelineConfig.TranscriptionServiceURL),
			pipelineConfig.MinVocalsDurationSecs))

	processor := must(process.NewJobProcessor(
		pipeline,
		jobStore,
		newGoogleFileStore(config.CloudStorageConfig),
		pathGenerator,
		pipelineConfig.DemucsWorkingDir,
	))

	return process.NewJobHandler(processor)
}
