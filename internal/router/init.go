package router

import (
	"github.com/sobrhq/sobr-server/internal/application"
	"github.com/sobrhq/sobr-server/internal/container"
	pginfra "github.com/sobrhq/sobr-server/internal/infrastructure/postgres"
	handlers "github.com/sobrhq/sobr-server/internal/interface/http"
	"github.com/sobrhq/sobr-server/internal/router/modules"
)

// InitModules constructs repositories, services, and handlers from the
// container singletons and registers every feature module. Called once
// during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	users := pginfra.NewUserRepository(pool)
	sponsors := pginfra.NewSponsorRepository(pool)
	connections := pginfra.NewConnectionRepository(pool)
	messages := pginfra.NewMessageRepository(pool)
	audit := pginfra.NewAuditRepository(pool)

	userSvc := &application.UserService{
		Users:        users,
		Audit:        audit,
		JWT:          container.GetJWT(),
		GCS:          container.GetGCS(),
		GCSBucket:    cfg.GCSBucket,
		Redis:        container.GetRedis(),
		Logger:       logger,
		ES:           container.GetES(),
		ESUsersIndex: cfg.ESUsersIndex,
	}
	connectionSvc := application.NewConnectionService(users, connections, container.GetRabbitPub(), logger)
	messagingSvc := application.NewMessagingService(users, messages, connectionSvc, cfg.AdminEmail, logger)
	conversationSvc := application.NewConversationService(users, messages, connections)
	vettingSvc := application.NewVettingService(users, sponsors, audit, container.GetRabbitPub(), logger, cfg.VettingDeclineDemotes)
	dashboardSvc := application.NewDashboardService(users, sponsors, connections, messages, container.GetRedis(), logger)
	activitySvc := application.NewActivityService(users, audit, logger)

	jwt := container.GetJWT()

	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(pool, container.GetRedis())))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(userSvc, jwt, logger, cfg.CookieDomain, cfg.CookieSecure), jwt))
	r.Add(modules.NewConnectionModule(handlers.NewConnectionHandler(connectionSvc, logger), jwt))
	r.Add(modules.NewMessageModule(handlers.NewMessageHandler(messagingSvc, conversationSvc, logger), jwt))
	r.Add(modules.NewSponsorModule(handlers.NewSponsorHandler(vettingSvc, logger), jwt))
	r.Add(modules.NewDashboardModule(handlers.NewDashboardHandler(dashboardSvc, activitySvc, logger), jwt))
}
