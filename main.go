package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glitzfusion/fusionx/common/bootstrap"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/common/ratelimit"
	"github.com/glitzfusion/fusionx/common/scheduler"
	attendancehandler "github.com/glitzfusion/fusionx/services/attendance-lambda/handler"
	attendanceusecase "github.com/glitzfusion/fusionx/services/attendance-lambda/usecase"
	bookinghandler "github.com/glitzfusion/fusionx/services/booking-lambda/handler"
	bookingusecase "github.com/glitzfusion/fusionx/services/booking-lambda/usecase"
	contenthandler "github.com/glitzfusion/fusionx/services/content-lambda/handler"
	contentusecase "github.com/glitzfusion/fusionx/services/content-lambda/usecase"
	eventhandler "github.com/glitzfusion/fusionx/services/event-lambda/handler"
	eventusecase "github.com/glitzfusion/fusionx/services/event-lambda/usecase"
	paymenthandler "github.com/glitzfusion/fusionx/services/payment-lambda/handler"
	paymentusecase "github.com/glitzfusion/fusionx/services/payment-lambda/usecase"
)

// Local server running every service behind one listener. Each lambda
// also has its own main under services/.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Default()
	app, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatal("[BOOT] startup failed: %v", err)
	}
	defer app.Close()

	payments := paymentusecase.NewPaymentUseCase(app.DB, app.Gateway, app.Mailer, app.Media, app.Jobs, log)
	routes := serviceRoutes(app, payments)

	limiter := ratelimit.New(app.Config.RateLimit.RPS, app.Config.RateLimit.Burst)
	go pruneLoop(ctx, limiter, 5*time.Minute)

	expiry := scheduler.NewPendingBookingExpiryScheduler(payments,
		app.Config.Booking.PendingTTL, app.Config.Booking.ExpiryInterval, log)
	if err := expiry.Start(); err != nil {
		log.Fatal("[BOOT] scheduler start failed: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + app.Config.Port,
		Handler:      newRouter(log, app.JWT, limiter, routes),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("[BOOT] FusionX listening on http://localhost:%s (%s, db=%s)", app.Config.Port, app.Config.Env, app.Config.DB.Driver)
		for _, rt := range routes {
			log.Debug("  %-6s %s", rt.method, rt.pattern)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("[BOOT] server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("[BOOT] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("[BOOT] graceful shutdown failed")
	}
	if err := expiry.Stop(); err != nil {
		log.WithError(err).Warn("[BOOT] scheduler stop failed")
	}
}

func serviceRoutes(app *bootstrap.App, payments *paymentusecase.PaymentUseCase) []route {
	events := eventhandler.NewEventHandler(eventusecase.NewEventUseCase(app.DB, app.Log))
	bookings := bookinghandler.NewBookingHandler(bookingusecase.NewBookingUseCase(app.DB, app.Mailer, app.Jobs, app.Log))
	pay := paymenthandler.NewPaymentHandler(payments)
	attendance := attendancehandler.NewAttendanceHandler(attendanceusecase.NewAttendanceUseCase(app.DB, app.Mailer, app.Jobs, app.Log))
	content := contenthandler.NewContentHandler(contentusecase.NewContentUseCase(app.Content, app.Media, app.Log))

	return []route{
		{method: http.MethodGet, pattern: eventhandler.RouteList, handler: events.Route},
		{method: http.MethodGet, pattern: eventhandler.RouteGet, handler: events.Route},
		{method: http.MethodGet, pattern: eventhandler.RouteQuote, handler: events.Route},
		{method: http.MethodPost, pattern: eventhandler.RouteAdminCreate, handler: events.Route},
		{method: http.MethodPut, pattern: eventhandler.RouteAdminStatus, handler: events.Route},
		{method: http.MethodPut, pattern: eventhandler.RouteAdminSlot, handler: events.Route},

		{method: http.MethodPost, pattern: bookinghandler.RouteCreate, handler: bookings.Route, limited: true},
		{method: http.MethodGet, pattern: bookinghandler.RouteGet, handler: bookings.Route},
		{method: http.MethodGet, pattern: bookinghandler.RouteGetByCode, handler: bookings.Route},
		{method: http.MethodGet, pattern: bookinghandler.RouteEventAdmin, handler: bookings.Route},

		{method: http.MethodPost, pattern: paymenthandler.RouteOrders, handler: pay.Route, limited: true},
		{method: http.MethodPost, pattern: paymenthandler.RouteVerify, handler: pay.Route, limited: true},
		{method: http.MethodPost, pattern: paymenthandler.RouteRefund, handler: pay.Route},
		{method: http.MethodGet, pattern: paymenthandler.RouteTransactions, handler: pay.Route},

		{method: http.MethodPost, pattern: attendancehandler.RouteValidate, handler: attendance.Route},
		{method: http.MethodGet, pattern: attendancehandler.RouteForEvent, handler: attendance.Route},

		{method: http.MethodGet, pattern: contenthandler.RouteSection, handler: content.Route},
		{method: http.MethodGet, pattern: contenthandler.RouteItem, handler: content.Route},
		{method: http.MethodPut, pattern: contenthandler.RouteAdminItem, handler: content.Route},
		{method: http.MethodDelete, pattern: contenthandler.RouteAdminItem, handler: content.Route},
		{method: http.MethodPost, pattern: contenthandler.RouteMedia, handler: content.Route},
		{method: http.MethodDelete, pattern: contenthandler.RouteMedia, handler: content.Route},
		{method: http.MethodDelete, pattern: contenthandler.RouteMediaItem, handler: content.Route},
	}
}
