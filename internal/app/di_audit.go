package app

import (
	"fmt"
	"sync"

	auditHTTP "github.com/allisson/trustcore/internal/audit/http"
	auditRepository "github.com/allisson/trustcore/internal/audit/repository"
	auditService "github.com/allisson/trustcore/internal/audit/service"
	auditUseCase "github.com/allisson/trustcore/internal/audit/usecase"
)

// auditDependencies holds the privacy audit trail components.
type auditDependencies struct {
	repo    auditUseCase.PrivacyEventRepository
	logger  auditUseCase.AuditLogger
	handler *auditHTTP.Handler

	repoInit    sync.Once
	loggerInit  sync.Once
	handlerInit sync.Once
}

// PrivacyEventRepository returns the privacy event repository instance.
func (c *Container) PrivacyEventRepository() (auditUseCase.PrivacyEventRepository, error) {
	c.auditDeps.repoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["privacyEventRepo"] = fmt.Errorf(
				"failed to get database for privacy event repository: %w", err)
			return
		}

		// Select the appropriate repository based on the database driver
		switch c.config.DBDriver {
		case "mysql":
			c.auditDeps.repo = auditRepository.NewMySQLPrivacyEventRepository(db)
		case "postgres":
			c.auditDeps.repo = auditRepository.NewPostgreSQLPrivacyEventRepository(db)
		default:
			c.initErrors["privacyEventRepo"] = fmt.Errorf(
				"unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["privacyEventRepo"]; exists {
		return nil, storedErr
	}
	return c.auditDeps.repo, nil
}

// AuditLogger returns the signed privacy audit logger. The signing secret is
// mandatory: without it stored events would carry no tamper evidence.
func (c *Container) AuditLogger() (auditUseCase.AuditLogger, error) {
	c.auditDeps.loggerInit.Do(func() {
		if c.config.AuditSigningSecret == "" {
			c.initErrors["auditLogger"] = fmt.Errorf("AUDIT_SIGNING_SECRET is not set")
			return
		}

		repo, err := c.PrivacyEventRepository()
		if err != nil {
			c.initErrors["auditLogger"] = fmt.Errorf(
				"failed to get privacy event repository for audit logger: %w", err)
			return
		}

		c.auditDeps.logger = auditUseCase.NewPrivacyEventUseCase(
			repo,
			auditService.NewEventSigner(),
			[]byte(c.config.AuditSigningSecret),
		)
	})
	if storedErr, exists := c.initErrors["auditLogger"]; exists {
		return nil, storedErr
	}
	return c.auditDeps.logger, nil
}

// AuditHandler returns the HTTP handler for audit trail read endpoints.
func (c *Container) AuditHandler() (*auditHTTP.Handler, error) {
	c.auditDeps.handlerInit.Do(func() {
		auditLogger, err := c.AuditLogger()
		if err != nil {
			c.initErrors["auditHandler"] = fmt.Errorf(
				"failed to get audit logger for handler: %w", err)
			return
		}
		c.auditDeps.handler = auditHTTP.NewHandler(auditLogger, c.Logger())
	})
	if storedErr, exists := c.initErrors["auditHandler"]; exists {
		return nil, storedErr
	}
	return c.auditDeps.handler, nil
}
