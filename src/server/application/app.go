package application

import (
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cockroachdb/errors"
	"github.com/guregu/dynamo"
	analysisgateway "github.com/harmonix-audio/harmonix-be/src/server/internal/analysis/gateway"
	analysisusecase "github.com/harmonix-audio/harmonix-be/src/server/internal/analysis/usecase"
	jobgateway "github.com/harmonix-audio/harmonix-be/src/server/internal/jobs/gateway"
	jobusecase "github.com/harmonix-audio/harmonix-be/src/server/internal/jobs/usecase"
	"github.com/harmonix-audio/harmonix-be/src/shared/config"
	jobstorage "github.com/harmonix-audio/harmonix-be/src/shared/job/storage"
	dynamolib "github.com/harmonix-audio/harmonix-be/src/shared/lib/dynamo"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/executor"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/rabbitmq"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/analyze"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/detect"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/orchestrator"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/preprocess"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type HTTPMethod string

const (
	GET    HTTPMethod = "GET"
	POST   HTTPMethod = "POST"
	PUT    HTTPMethod = "PUT"
	DELETE HTTPMethod = "DELETE"
)

type App struct {
	echo *echo.Echo
	port string
}

type Config struct {
	DynamoConfig       config.Dynamo
	RabbitMQURL        string
	RabbitMQQueueName  string
	Pipeline           config.Pipeline
	CORSAllowedOrigins []string
	Port               string
	Log                bool
}

func NewApp(config Config) App {
	e := echo.New()

	if config.Log {
		e.Use(middleware.Logger())
	}

	corsMiddleware := makeCorsMiddleware(config)

	handleRoute := func(method HTTPMethod, path string, handlerFunc echo.HandlerFunc) {
		params := func() (string, echo.HandlerFunc, echo.MiddlewareFunc) {
			return path, handlerFunc, corsMiddleware
		}

		e.OPTIONS(params())

		switch method {
		case GET:
			e.GET(params())
		case POST:
			e.POST(params())
		case PUT:
			e.PUT(params())
		case DELETE:
			e.DELETE(params())
		default:
			panic("unhandled http method!")
		}
	}

	dynamoDB := makeDynamoDB(config.DynamoConfig)
	rabbitmqPublisher := makeRabbitMQPublisher(config)

	jobGateway := makeJobGateway(dynamoDB, rabbitmqPublisher)
	analysisGateway := makeAnalysisGateway(config.Pipeline)

	// health check
	handleRoute(GET, "/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// job routes
	handleRoute(POST, "/jobs", jobGateway.CreateJob)
	handleRoute(GET, "/jobs/:id", func(c echo.Context) error {
		jobID := c.Param("id")
		return jobGateway.GetJob(c, jobID)
	})
	handleRoute(GET, "/jobs/:id/result", func(c echo.Context) error {
		jobID := c.Param("id")
		return jobGateway.GetResult(c, jobID)
	})

	// synchronous analysis route
	handleRoute(POST, "/analyze", analysisGateway.Analyze)

	return App{
		echo: e,
		port: config.Port,
	}
}

func (a *App) Start() error {
	err := a.echo.Start(a.port)
	if err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "Couldn't start echo server")
	}

	return nil
}

func (a *App) Stop() error {
	err := a.echo.Close()
	if err != nil {
		return errors.Wrap(err, "Failed to stop echo server")
	}

	return nil
}

func makeRabbitMQPublisher(config Config) *rabbitmq.QueuePublisher {
	publisher, err := rabbitmq.NewQueuePublisher(config.RabbitMQURL, config.RabbitMQQueueName)
	if err != nil {
		panic(errors.Wrap(err, "Failed to create rabbitMQ publisher"))
	}

	return publisher
}

func makeDynamoDB(dynamoConfig config.Dynamo) dynamolib.DynamoDBWrapper {
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

func makeJobGateway(dynamoDB dynamolib.DynamoDBWrapper, publisher rabbitmq.Publisher) jobgateway.Gateway {
	jobDB := jobstorage.NewDB(dynamoDB)
	jobUsecase := jobusecase.NewUsecase(jobDB, publisher)
	return jobgateway.NewGateway(jobUsecase)
}

func makeAnalysisGateway(pipelineConfig config.Pipeline) analysisgateway.Gateway {
	if err := pipelineConfig.Validate(); err != nil {
		panic(errors.Wrap(err, "Pipeline config failed validation"))
	}

	commandExecutor := executor.BinaryFileExecutor{}

	analysisOrchestrator := orchestrator.NewAnalysisOrchestrator(
		preprocess.New(pipelineConfig, commandExecutor),
		detect.NewDetector(pipelineConfig, commandExecutor),
		analyze.NewAnalyzer(pipelineConfig),
	)

	analysisUsecase := analysisusecase.NewUsecase(analysisOrchestrator)
	return analysisgateway.NewGateway(analysisUsecase)
}

func makeCorsMiddleware(config Config) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.CORSAllowedOrigins,
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	})
}
