package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/pavelanni/examhelper/internal/model"
)

type SeedService struct {
	seeds  SeedStore
	logger *slog.Logger
}

func NewSeedService(seeds SeedStore, logger *slog.Logger) *SeedService {
	return &SeedService{seeds: seeds, logger: loggerOrDefault(logger)}
}

type seedInput struct {
	Name   string       `validate:"required,max=200"`
	Blocks []blockInput `validate:"dive"`
}

type blocksInput struct {
	Blocks []blockInput `validate:"dive"`
}

type blockInput struct {
	NumberOfQuestions int `validate:"min=0"`
}

// normalizeBlocks fills in missing block ids and tag lists.
func normalizeBlocks(blocks []model.QuestionBlock) []model.QuestionBlock {
	out := make([]model.QuestionBlock, len(blocks))
	for i, b := range blocks {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		b.Tags = cleanTags(b.Tags)
		out[i] = b
	}
	return out
}

func blockInputs(blocks []model.QuestionBlock) []blockInput {
	out := make([]blockInput, len(blocks))
	for i, b := range blocks {
		out[i] = blockInput{NumberOfQuestions: b.NumberOfQuestions}
	}
	return out
}

// Create stores a seed. Banks and blocks are kept as given; an empty seed
// is allowed and simply generates an empty exam.
func (s *SeedService) Create(ctx context.Context, sd model.ExamSeed) (model.ExamSeed, error) {
	sd.Name = strings.TrimSpace(sd.Name)
	if err := check(seedInput{Name: sd.Name, Blocks: blockInputs(sd.QuestionBlocks)}); err != nil {
		return model.ExamSeed{}, err
	}
	sd.Description = strings.TrimSpace(sd.Description)
	sd.BankIDs = slices.Clone(sd.BankIDs)
	sd.QuestionBlocks = normalizeBlocks(sd.QuestionBlocks)
	created, err := s.seeds.CreateSeed(ctx, sd)
	if err != nil {
		return model.ExamSeed{}, err
	}
	s.logger.Info("created exam seed", "id", created.ID, "name", created.Name, "blocks", len(created.QuestionBlocks))
	return created, nil
}

func (s *SeedService) List(ctx context.Context) ([]model.ExamSeed, error) {
	return s.seeds.ListSeeds(ctx)
}

func (s *SeedService) Get(ctx context.Context, id string) (model.ExamSeed, error) {
	return s.seeds.GetSeed(ctx, id)
}

func (s *SeedService) Update(ctx context.Context, id string, patch model.SeedPatch) error {
	if patch.Name != nil {
		name, err := requireName("name", *patch.Name)
		if err != nil {
			return err
		}
		patch.Name = &name
	}
	if patch.QuestionBlocks != nil {
		if err := check(blocksInput{Blocks: blockInputs(patch.QuestionBlocks)}); err != nil {
			return err
		}
		patch.QuestionBlocks = normalizeBlocks(patch.QuestionBlocks)
	}
	return s.seeds.UpdateSeed(ctx, id, patch)
}

func (s *SeedService) Delete(ctx context.Context, id string) error {
	return s.seeds.DeleteSeed(ctx, id)
}
