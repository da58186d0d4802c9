package service

import (
	"context"

	"mltm/internal/models"
	"mltm/internal/repository"
)

// DirectoryService serves fleet metadata and storage health.
type DirectoryService struct {
	machines repository.Machines
}

func NewDirectoryService(machines repository.Machines) *DirectoryService {
	return &DirectoryService{machines: machines}
}

var _ Directory = (*DirectoryService)(nil)

func (s *DirectoryService) Machines(ctx context.Context) ([]models.Machine, error) {
	return s.machines.List(ctx)
}

func (s *DirectoryService) Colors(ctx context.Context) ([]models.StatusColor, error) {
	return s.machines.ListColors(ctx)
}

func (s *DirectoryService) Ping(ctx context.Context) error {
	return s.machines.Ping(ctx)
}
