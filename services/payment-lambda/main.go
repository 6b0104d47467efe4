package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/glitzfusion/fusionx/common/auth"
	"github.com/glitzfusion/fusionx/common/bootstrap"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/services/payment-lambda/handler"
	"github.com/glitzfusion/fusionx/services/payment-lambda/usecase"
)

// For AWS Lambda deployment. API Gateway routes every payment path to this
// function and the handler dispatches on Resource.
func main() {
	app, err := bootstrap.New(context.Background())
	if err != nil {
		logger.Fatal("[BOOT] payment-lambda startup failed: %v", err)
	}
	defer app.Close()

	h := handler.NewPaymentHandler(usecase.NewPaymentUseCase(app.DB, app.Gateway, app.Mailer, app.Media, app.Jobs, app.Log))
	lambda.Start(auth.Lambda(app.JWT, h.Route))
}
