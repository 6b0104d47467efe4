package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/glitzfusion/fusionx/common/auth"
	"github.com/glitzfusion/fusionx/common/bootstrap"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/services/booking-lambda/handler"
	"github.com/glitzfusion/fusionx/services/booking-lambda/usecase"
)

// For AWS Lambda deployment. API Gateway routes every booking path to this
// function and the handler dispatches on Resource.
func main() {
	app, err := bootstrap.New(context.Background())
	if err != nil {
		logger.Fatal("[BOOT] booking-lambda startup failed: %v", err)
	}
	defer app.Close()

	h := handler.NewBookingHandler(usecase.NewBookingUseCase(app.DB, app.Mailer, app.Jobs, app.Log))
	lambda.Start(auth.Lambda(app.JWT, h.Route))
}
