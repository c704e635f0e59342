package services

import (
	"context"

	"github.com/oklog/ulid/v2"

	"draw-backend/internal/drawing"
	"draw-backend/internal/models"
)

type UploadSigner interface {
	CreateUploadURL(ctx context.Context, key string) (string, error)
}

// UploadService hands out a submission id and a signed PUT URL for it.
type UploadService struct {
	signer  UploadSigner
	prompts *drawing.PromptResolver
	newID   func() string
}

func NewUploadService(signer UploadSigner, prompts *drawing.PromptResolver) *UploadService {
	return &UploadService{
		signer:  signer,
		prompts: prompts,
		newID:   func() string { return ulid.Make().String() },
	}
}

func (s *UploadService) CreateUploadURL(ctx context.Context, req models.UploadURLRequest) (*models.UploadURLResponse, error) {
	prompt := s.prompts.Resolve(req.Month, req.PromptID)
	submissionID := s.newID()
	imageKey := drawing.ImageKey(prompt.PromptID, submissionID)

	putURL, err := s.signer.CreateUploadURL(ctx, imageKey)
	if err != nil {
		return nil, err
	}

	return &models.UploadURLResponse{
		SubmissionID: submissionID,
		ImageKey:     imageKey,
		PutURL:       putURL,
		PromptID:     prompt.PromptID,
		PromptText:   prompt.PromptText,
	}, nil
}
