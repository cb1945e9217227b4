package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/clothing-shop/internal/app"
	"github.com/linemk/clothing-shop/internal/app/handlers"
	"github.com/linemk/clothing-shop/internal/config"
	"github.com/linemk/clothing-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/clothing-shop/internal/lib/logger"
	"github.com/linemk/clothing-shop/internal/lib/logger/handlers/urllog"
	"github.com/linemk/clothing-shop/internal/lib/logger/sl"
	"github.com/linemk/clothing-shop/internal/service"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env, os.Stdout)
	log.Info("starting app", slog.String("env", cfg.Env), slog.String("storage", cfg.Storage.Driver))

	// цены отдаются числами, а не строками
	decimal.MarshalJSONWithoutQuotes = true

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.NewApp(initCtx, log, cfg)
	cancelInit()
	if err != nil {
		log.Error("failed to initialize app", sl.Err(err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	authService := service.NewAuthService(log, application.Users, application.Issuer, cfg.Admin.Email, cfg.Admin.Password)
	productService := service.NewProductService(log, application.Products, application.Images)
	cartService := service.NewCartService(log, application.Carts, application.Products)
	orderService := service.NewOrderService(log, application.Orders, application.Users, application.Products, application.Carts,
		service.OrderSettings{
			ShippingFee:   decimal.NewFromInt(cfg.Orders.ShippingFee),
			PaymentMethod: cfg.Orders.PaymentMethod,
		})

	signedIn := jwtmiddleware.RequireSignIn(log, application.Issuer)
	adminOnly := jwtmiddleware.RequireAdmin(log)
	maxUpload := cfg.HTTPServer.MaxUploadMB << 20

	router.Route("/api/user", func(r chi.Router) {
		r.Post("/register", handlers.RegisterHandler(log, authService))
		r.Post("/login", handlers.LoginHandler(log, authService))
		r.Post("/admin", handlers.AdminLoginHandler(log, authService))
		r.With(signedIn).Put("/profile", handlers.UpdateProfileHandler(log, authService))
	})

	router.Route("/api/product", func(r chi.Router) {
		r.Get("/list", handlers.ListProductsHandler(log, productService))
		r.Get("/{id}", handlers.GetProductHandler(log, productService))
		r.Group(func(r chi.Router) {
			r.Use(signedIn, adminOnly)
			r.Post("/add", handlers.AddProductHandler(log, productService, maxUpload))
			r.Delete("/{id}", handlers.DeleteProductHandler(log, productService))
		})
	})

	router.Route("/api/cart", func(r chi.Router) {
		r.Use(signedIn)
		r.Get("/", handlers.GetCartHandler(log, cartService))
		r.Post("/add", handlers.AddToCartHandler(log, cartService))
		r.Put("/update", handlers.UpdateCartHandler(log, cartService))
		r.Delete("/item", handlers.RemoveFromCartHandler(log, cartService))
		r.Delete("/", handlers.ClearCartHandler(log, cartService))
	})

	router.Route("/api/order", func(r chi.Router) {
		r.Use(signedIn)
		r.Post("/create", handlers.CreateOrderHandler(log, orderService))
		r.Get("/user-orders", handlers.UserOrdersHandler(log, orderService))
		// управление заказами доступно только администратору
		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/all", handlers.AllOrdersHandler(log, orderService))
			r.Put("/status/{orderId}", handlers.UpdateOrderStatusHandler(log, orderService))
			r.Delete("/{orderId}", handlers.DeleteOrderHandler(log, orderService))
			r.Delete("/{orderId}/product/{lineId}", handlers.RemoveOrderLineHandler(log, orderService))
		})
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", sl.Err(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", sl.Err(err))
	}
	log.Info("server gracefully stopped")
}
