package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/mmo-worldgen/internal/auth"
	"github.com/annel0/mmo-worldgen/internal/cache"
	"github.com/annel0/mmo-worldgen/internal/eventbus"
	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/annel0/mmo-worldgen/internal/middleware"
	"github.com/annel0/mmo-worldgen/internal/storage"
	"github.com/annel0/mmo-worldgen/internal/worldgen"
	"github.com/annel0/mmo-worldgen/internal/worldgen/sampler"
	"github.com/annel0/mmo-worldgen/internal/worldservice"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Version версия сервиса, отдаётся в /api/server
const Version = "v0.1.0"

// RestServer представляет REST API сервер
type RestServer struct {
	router           *gin.Engine
	httpServer       *http.Server
	service          *worldservice.Service
	auth             *auth.Authenticator
	cache            cache.CacheRepo
	bus              eventbus.EventBus
	port             string
	metrics          *ServerMetrics
	outboundWebhooks *OutboundWebhookManager
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string                // порт для запуска сервера (":8088")
	Service  *worldservice.Service // сервис шаблонов
	Auth     *auth.Authenticator   // вход и проверка токенов
	Cache    cache.CacheRepo       // опционально, для /api/server
	EventBus eventbus.EventBus     // опционально, для /api/server и webhook'ов
	ServerID string

	// Registry: регистр Prometheus, при nil используется глобальный
	Registry *prometheus.Registry
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) (*RestServer, error) {
	if config.Service == nil || config.Auth == nil {
		return nil, fmt.Errorf("REST сервер: не заданы сервис шаблонов или аутентификатор")
	}
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.ServerID == "" {
		config.ServerID = "worldgen"
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("worldgen_api"))
	router.Use(middleware.NewRequestLogger().Handler())

	var reg prometheus.Registerer
	var gatherer prometheus.Gatherer
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}
	promMw := middleware.NewPrometheusMiddleware("worldgen_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	server := &RestServer{
		router:           router,
		service:          config.Service,
		auth:             config.Auth,
		cache:            config.Cache,
		bus:              config.EventBus,
		port:             config.Port,
		metrics:          NewServerMetrics(),
		outboundWebhooks: NewOutboundWebhookManager(config.ServerID),
	}
	if config.EventBus != nil {
		if err := server.outboundWebhooks.Attach(config.EventBus); err != nil {
			return nil, fmt.Errorf("подписка webhook'ов на события: %w", err)
		}
	}

	server.setupRoutes()
	server.httpServer = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server, nil
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.POST("/auth/login", rs.handleLogin)

	worlds := api.Group("/worlds")
	{
		worlds.GET("", rs.handleListWorlds)
		worlds.GET("/:seed", rs.handleGetWorld)
		worlds.GET("/:seed/levels/:level", rs.handleGetLevel)
		worlds.GET("/:seed/camps/:ordinal", rs.handleGetCamp)
	}

	// Защищенные эндпоинты (требуют JWT)
	protected := api.Group("")
	protected.Use(rs.jwtMiddleware())
	{
		protected.GET("/server", rs.handleServerInfo)

		admin := protected.Group("/admin")
		admin.Use(rs.adminMiddleware())
		{
			admin.POST("/worlds/:seed/regenerate", rs.handleRegenerate)
			admin.DELETE("/worlds/:seed", rs.handleDeleteWorld)

			admin.GET("/webhooks", rs.handleGetOutboundWebhooks)
			admin.POST("/webhooks", rs.handleCreateOutboundWebhook)
			admin.DELETE("/webhooks/:id", rs.handleDeleteOutboundWebhook)
			admin.GET("/webhooks/events", rs.handleGetWebhookEventTypes)
		}
	}
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает HTTP сервер; блокирует до остановки
func (rs *RestServer) Start() error {
	logging.Info("🌐 REST API слушает %s", rs.port)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер и отправку webhook'ов
func (rs *RestServer) Shutdown(ctx context.Context) error {
	defer rs.outboundWebhooks.Close()
	return rs.httpServer.Shutdown(ctx)
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleLogin обрабатывает запрос на вход
func (rs *RestServer) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса",
		})
		return
	}

	res, err := rs.auth.Login(req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, GenericResponse{
			Success: false,
			Message: "Неверное имя пользователя или пароль",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{
			Success: false,
			Message: "Внутренняя ошибка сервера",
		})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Вход выполнен",
		Data:    res,
	})
}

func (rs *RestServer) handleListWorlds(c *gin.Context) {
	list, err := rs.service.List(c.Request.Context())
	if err != nil {
		rs.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Сохранённые шаблоны",
		Data: gin.H{
			"templates": list,
			"total":     len(list),
		},
	})
}

func (rs *RestServer) handleGetWorld(c *gin.Context) {
	seed, ok := parseSeed(c)
	if !ok {
		return
	}

	tpl, source, err := rs.service.Get(c.Request.Context(), seed)
	if err != nil {
		rs.writeError(c, err)
		return
	}

	c.Header("X-Template-Source", string(source))
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Шаблон мира",
		Data:    tpl,
	})
}

func (rs *RestServer) handleGetLevel(c *gin.Context) {
	seed, ok := parseSeed(c)
	if !ok {
		return
	}
	level, ok := parseIntParam(c, "level")
	if !ok {
		return
	}

	view, err := rs.service.Level(c.Request.Context(), seed, level)
	if err != nil {
		rs.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Уровень шаблона",
		Data:    view,
	})
}

func (rs *RestServer) handleGetCamp(c *gin.Context) {
	seed, ok := parseSeed(c)
	if !ok {
		return
	}
	ordinal, ok := parseIntParam(c, "ordinal")
	if !ok {
		return
	}

	view, err := rs.service.Camp(c.Request.Context(), seed, ordinal)
	if err != nil {
		rs.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Лагерь шаблона",
		Data:    view,
	})
}

func (rs *RestServer) handleRegenerate(c *gin.Context) {
	seed, ok := parseSeed(c)
	if !ok {
		return
	}

	tpl, err := rs.service.Regenerate(c.Request.Context(), seed)
	if err != nil {
		rs.writeError(c, err)
		return
	}

	if claims := claimsFrom(c); claims != nil {
		logging.Info("♻️ Шаблон seed=%d перегенерирован администратором %s", seed, claims.Username)
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Шаблон перегенерирован",
		Data:    tpl,
	})
}

func (rs *RestServer) handleDeleteWorld(c *gin.Context) {
	seed, ok := parseSeed(c)
	if !ok {
		return
	}

	if err := rs.service.Delete(c.Request.Context(), seed); err != nil {
		rs.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Шаблон удалён",
	})
}

// handleServerInfo возвращает состояние процесса, кеша и шины событий
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	info := gin.H{
		"version":     Version,
		"name":        "MMO World Template Generator",
		"status":      "running",
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   fmt.Sprintf("%.1f", memoryMB),
		"cpu_percent": fmt.Sprintf("%.1f", cpuPercent),
		"runtime":     rs.metrics.GetDetailedMemoryStats(),
	}
	if rs.cache != nil {
		info["cache"] = rs.cache.GetMetrics()
	}
	if rs.bus != nil {
		info["events"] = rs.bus.Metrics()
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data:    info,
	})
}

func (rs *RestServer) handleGetOutboundWebhooks(c *gin.Context) {
	webhooks := rs.outboundWebhooks.GetWebhooks()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список webhook'ов",
		Data: gin.H{
			"webhooks": webhooks,
			"total":    len(webhooks),
		},
	})
}

func (rs *RestServer) handleCreateOutboundWebhook(c *gin.Context) {
	var webhook OutboundWebhook
	if err := c.ShouldBindJSON(&webhook); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса: " + err.Error(),
		})
		return
	}

	created := rs.outboundWebhooks.AddWebhook(webhook)
	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Webhook создан успешно",
		Data:    created,
	})
}

func (rs *RestServer) handleDeleteOutboundWebhook(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный ID webhook'а",
		})
		return
	}

	if !rs.outboundWebhooks.DeleteWebhook(id) {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Webhook не найден",
		})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Webhook удален успешно",
	})
}

func (rs *RestServer) handleGetWebhookEventTypes(c *gin.Context) {
	eventTypes := EventTypes()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Типы событий получены",
		Data: gin.H{
			"event_types": eventTypes,
			"total":       len(eventTypes),
		},
	})
}

// writeError переводит ошибку сервиса в HTTP статус
func (rs *RestServer) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Внутренняя ошибка сервера"

	switch {
	case errors.Is(err, storage.ErrTemplateNotFound):
		status, message = http.StatusNotFound, "Шаблон не найден"
	case errors.Is(err, worldgen.ErrLevelNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, worldgen.ErrCampNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, sampler.ErrExhausted):
		// seed не генерируется при текущих параметрах сэмплера
		status, message = http.StatusUnprocessableEntity, "Не удалось разместить объекты шаблона: "+err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusServiceUnavailable, "Запрос прерван"
	}

	if status >= http.StatusInternalServerError {
		logging.Error("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

func parseSeed(c *gin.Context) (int64, bool) {
	seed, err := strconv.ParseInt(c.Param("seed"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный seed",
		})
		return 0, false
	}
	return seed, true
}

func parseIntParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный параметр " + name,
		})
		return 0, false
	}
	return v, true
}
