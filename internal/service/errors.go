package service

import (
	"errors"

	"github.com/devgenerative/controlefinanciero/internal/amortization"
	"github.com/devgenerative/controlefinanciero/internal/repository"
)

var (
	ErrNotFound              = repository.ErrNotFound
	ErrAccountNotFound       = repository.ErrAccountNotFound
	ErrInvalidDebtParameters = amortization.ErrInvalidDebtParameters

	ErrForbidden           = errors.New("resource belongs to another family")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNoSettlementAccount = errors.New("no settlement account")
	ErrDebtFullyPaid       = errors.New("debt is fully paid")
)
