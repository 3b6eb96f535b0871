package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

// BankStores is the persistence BankService works against.
type BankStores interface {
	Transactor
	BankStore
	QuestionStore
}

type BankService struct {
	store  BankStores
	logger *slog.Logger
}

func NewBankService(store BankStores, logger *slog.Logger) *BankService {
	return &BankService{store: store, logger: loggerOrDefault(logger)}
}

type bankInput struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
}

func newBankInput(name, description string) (bankInput, error) {
	in := bankInput{Name: strings.TrimSpace(name), Description: strings.TrimSpace(description)}
	return in, check(in)
}

func (s *BankService) Create(ctx context.Context, name, description string) (model.Bank, error) {
	in, err := newBankInput(name, description)
	if err != nil {
		return model.Bank{}, err
	}
	return s.store.CreateBank(ctx, in.Name, in.Description)
}

func (s *BankService) List(ctx context.Context) ([]model.Bank, error) {
	return s.store.ListBanks(ctx)
}

func (s *BankService) Get(ctx context.Context, id string) (model.Bank, error) {
	return s.store.GetBank(ctx, id)
}

func (s *BankService) Update(ctx context.Context, id, name, description string) error {
	in, err := newBankInput(name, description)
	if err != nil {
		return err
	}
	return s.store.UpdateBank(ctx, id, in.Name, in.Description)
}

// Delete removes the bank with all of its questions.
func (s *BankService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteBank(ctx, id)
}

// Export returns the bank and its questions for the per-bank file.
func (s *BankService) Export(ctx context.Context, id string) (model.BankExport, error) {
	b, err := s.store.GetBank(ctx, id)
	if err != nil {
		return model.BankExport{}, err
	}
	qs, err := s.store.ListQuestionsByBank(ctx, id)
	if err != nil {
		return model.BankExport{}, fmt.Errorf("list questions: %w", err)
	}
	return model.BankExport{Bank: &b, Questions: qs}, nil
}

// Import creates a new bank named after the file's bank and copies every
// question into it under a fresh id. Existing data is never touched.
func (s *BankService) Import(ctx context.Context, payload model.BankExport) (model.Bank, error) {
	if payload.Bank == nil {
		return model.Bank{}, apperrors.InvalidFormat("bank file has no bank")
	}
	if payload.Questions == nil {
		return model.Bank{}, apperrors.InvalidFormat("bank file has no questions")
	}
	name := strings.TrimSpace(payload.Bank.Name)
	if name == "" {
		name = "Untitled"
	}

	var created model.Bank
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.store.CreateBank(ctx, name+model.ImportedSuffix, payload.Bank.Description)
		if err != nil {
			return err
		}
		for i, q := range payload.Questions {
			q.BankID = created.ID
			if _, err := s.store.CreateQuestion(ctx, q); err != nil {
				return fmt.Errorf("import question %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Bank{}, err
	}
	s.logger.Info("imported bank", "bank_id", created.ID, "name", created.Name, "questions", len(payload.Questions))
	return created, nil
}
