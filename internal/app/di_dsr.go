package app

import (
	"fmt"
	"sync"

	dsrHTTP "github.com/allisson/trustcore/internal/dsr/http"
	dsrRepository "github.com/allisson/trustcore/internal/dsr/repository"
	dsrUseCase "github.com/allisson/trustcore/internal/dsr/usecase"
)

// dsrDependencies holds the data subject request components.
type dsrDependencies struct {
	deletionRepo dsrUseCase.DeletionRequestRepository
	userDataRepo dsrUseCase.UserDataRepository
	orchestrator dsrUseCase.DSROrchestrator
	handler      *dsrHTTP.Handler

	deletionRepoInit sync.Once
	userDataRepoInit sync.Once
	orchestratorInit sync.Once
	handlerInit      sync.Once
}

// DeletionRequestRepository returns the deletion request repository instance.
func (c *Container) DeletionRequestRepository() (dsrUseCase.DeletionRequestRepository, error) {
	c.dsrDeps.deletionRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["deletionRequestRepo"] = fmt.Errorf(
				"failed to get database for deletion request repository: %w", err)
			return
		}

		// Select the appropriate repository based on the database driver
		switch c.config.DBDriver {
		case "mysql":
			c.dsrDeps.deletionRepo = dsrRepository.NewMySQLDeletionRequestRepository(db)
		case "postgres":
			c.dsrDeps.deletionRepo = dsrRepository.NewPostgreSQLDeletionRequestRepository(db)
		default:
			c.initErrors["deletionRequestRepo"] = fmt.Errorf(
				"unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["deletionRequestRepo"]; exists {
		return nil, storedErr
	}
	return c.dsrDeps.deletionRepo, nil
}

// UserDataRepository returns the user data repository instance.
func (c *Container) UserDataRepository() (dsrUseCase.UserDataRepository, error) {
	c.dsrDeps.userDataRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["userDataRepo"] = fmt.Errorf(
				"failed to get database for user data repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.dsrDeps.userDataRepo = dsrRepository.NewMySQLUserDataRepository(db)
		case "postgres":
			c.dsrDeps.userDataRepo = dsrRepository.NewPostgreSQLUserDataRepository(db)
		default:
			c.initErrors["userDataRepo"] = fmt.Errorf(
				"unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["userDataRepo"]; exists {
		return nil, storedErr
	}
	return c.dsrDeps.userDataRepo, nil
}

// DSROrchestrator returns the data subject request orchestrator, decorated
// with business metrics when metrics are enabled.
func (c *Container) DSROrchestrator() (dsrUseCase.DSROrchestrator, error) {
	c.dsrDeps.orchestratorInit.Do(func() {
		orchestrator, err := c.initDSROrchestrator()
		if err != nil {
			c.initErrors["dsrOrchestrator"] = err
			return
		}
		c.dsrDeps.orchestrator = orchestrator
	})
	if storedErr, exists := c.initErrors["dsrOrchestrator"]; exists {
		return nil, storedErr
	}
	return c.dsrDeps.orchestrator, nil
}

// initDSROrchestrator creates the orchestrator with all its dependencies.
func (c *Container) initDSROrchestrator() (dsrUseCase.DSROrchestrator, error) {
	deletionRepo, err := c.DeletionRequestRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get deletion request repository for dsr orchestrator: %w", err)
	}

	userDataRepo, err := c.UserDataRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user data repository for dsr orchestrator: %w", err)
	}

	auditLogger, err := c.AuditLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logger for dsr orchestrator: %w", err)
	}

	orchestrator := dsrUseCase.NewDSROrchestrator(deletionRepo, userDataRepo, auditLogger, c.Logger())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for dsr orchestrator: %w", err)
		}
		return dsrUseCase.NewDSROrchestratorWithMetrics(orchestrator, businessMetrics), nil
	}

	return orchestrator, nil
}

// DSRHandler returns the HTTP handler for data subject request endpoints.
func (c *Container) DSRHandler() (*dsrHTTP.Handler, error) {
	c.dsrDeps.handlerInit.Do(func() {
		orchestrator, err := c.DSROrchestrator()
		if err != nil {
			c.initErrors["dsrHandler"] = fmt.Errorf(
				"failed to get dsr orchestrator for handler: %w", err)
			return
		}
		c.dsrDeps.handler = dsrHTTP.NewHandler(orchestrator, c.Logger())
	})
	if storedErr, exists := c.initErrors["dsrHandler"]; exists {
		return nil, storedErr
	}
	return c.dsrDeps.handler, nil
}
