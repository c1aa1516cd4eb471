package bootstrap

import (
	"crosswalk/dispatch"
	"crosswalk/service"

	"go.uber.org/zap"
)

// NewServices builds the query services on the entity stores
func NewServices(s *StorageComponents, sugar *zap.SugaredLogger) dispatch.Services {
	return dispatch.Services{
		Search:       service.NewSearchService(s.Requirements, sugar),
		Requirements: service.NewRequirementService(s.Standards, s.Requirements, s.Mappings, sugar),
		Levels:       service.NewLevelService(s.Requirements, sugar),
		Zones:        service.NewZoneService(s.Zones, sugar),
		Techniques:   service.NewTechniqueService(s.Techniques, sugar),
		Rationale:    service.NewRationaleService(s.Standards, s.Requirements, s.Mappings, sugar),
		Standards:    service.NewStandardService(s.Standards, sugar),
	}
}

// NewDispatcher builds the services and the tool dispatcher routing to them
func NewDispatcher(s *StorageComponents, sugar *zap.SugaredLogger) (*dispatch.Dispatcher, error) {
	return dispatch.NewDispatcher(NewServices(s, sugar), sugar)
}
