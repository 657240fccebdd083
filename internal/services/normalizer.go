package services

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"alfredoptarigan/cv-analyzer/internal/models"
)

// DocumentPair is the canonical pipeline input, whatever transport it came from.
type DocumentPair struct {
	Job models.EncodedDocument
	CV  models.EncodedDocument
}

type DocumentNormalizer interface {
	FromUploads(job, cv *multipart.FileHeader) (*DocumentPair, error)
	FromBase64(job, cv string) (*DocumentPair, error)
}

type documentNormalizer struct{}

func NewDocumentNormalizer() DocumentNormalizer {
	return &documentNormalizer{}
}

// FromUploads implements DocumentNormalizer. A nil or empty part is a missing document.
func (n *documentNormalizer) FromUploads(job, cv *multipart.FileHeader) (*DocumentPair, error) {
	if job == nil || job.Size == 0 {
		return nil, missingDocument(models.RoleJob)
	}
	if cv == nil || cv.Size == 0 {
		return nil, missingDocument(models.RoleCV)
	}

	jobData, err := EncodeUpload(job)
	if err != nil {
		return nil, internalError(fmt.Sprintf("failed to read %s upload", models.RoleJob.FieldName()), err)
	}
	cvData, err := EncodeUpload(cv)
	if err != nil {
		return nil, internalError(fmt.Sprintf("failed to read %s upload", models.RoleCV.FieldName()), err)
	}

	return n.FromBase64(jobData, cvData)
}

// FromBase64 implements DocumentNormalizer.
func (n *documentNormalizer) FromBase64(job, cv string) (*DocumentPair, error) {
	job = strings.TrimSpace(job)
	cv = strings.TrimSpace(cv)

	if job == "" {
		return nil, missingDocument(models.RoleJob)
	}
	if cv == "" {
		return nil, missingDocument(models.RoleCV)
	}

	return &DocumentPair{
		Job: models.EncodedDocument{Role: models.RoleJob, Data: job},
		CV:  models.EncodedDocument{Role: models.RoleCV, Data: cv},
	}, nil
}

// EncodeUpload reads an uploaded part and returns it base64 encoded.
func EncodeUpload(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	raw, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}
