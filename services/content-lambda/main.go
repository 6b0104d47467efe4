package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/glitzfusion/fusionx/common/auth"
	"github.com/glitzfusion/fusionx/common/bootstrap"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/services/content-lambda/handler"
	"github.com/glitzfusion/fusionx/services/content-lambda/usecase"
)

// For AWS Lambda deployment. API Gateway routes every content and media path to this
// function and the handler dispatches on Resource.
func main() {
	app, err := bootstrap.New(context.Background())
	if err != nil {
		logger.Fatal("[BOOT] content-lambda startup failed: %v", err)
	}
	defer app.Close()

	h := handler.NewContentHandler(usecase.NewContentUseCase(app.Content, app.Media, app.Log))
	lambda.Start(auth.Lambda(app.JWT, h.Route))
}
