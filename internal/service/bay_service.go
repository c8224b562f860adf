package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/parkshare/internal/model"
)

// maxLabelLen matches bays.label VARCHAR(64).
const maxLabelLen = 64

// BayService is the bay registry.
type BayService struct {
	bays BayStore
	log  *zap.Logger
	now  func() time.Time
}

func NewBayService(bays BayStore, log *zap.Logger) *BayService {
	return &BayService{bays: bays, log: log, now: time.Now}
}

// RegisterBay creates the caller's bay and its first, closed window.
// The owner must confirm the bay is theirs.
func (s *BayService) RegisterBay(ctx context.Context, ownerID uint64, label string, confirmOwnership bool) (*model.Bay, error) {
	if !confirmOwnership {
		return nil, fail(KindInvalidInput, "ownership of the bay must be confirmed")
	}
	label, err := normalizeLabel(label)
	if err != nil {
		return nil, err
	}
	bay, err := s.bays.CreateWithInitialWindow(ctx, ownerID, label, s.now())
	if err != nil {
		return nil, logFailure(s.log, "register bay", translate(err), zap.Uint64("owner_id", ownerID), zap.String("label", label))
	}
	s.log.Info("bay registered", zap.Uint64("bay_id", bay.ID), zap.Uint64("owner_id", ownerID), zap.String("label", label))
	return bay, nil
}

// GetBay returns any bay by id.
func (s *BayService) GetBay(ctx context.Context, bayID uint64) (*model.Bay, error) {
	bay, err := s.bays.GetByID(ctx, bayID)
	if err != nil {
		return nil, logFailure(s.log, "get bay", translate(err), zap.Uint64("bay_id", bayID))
	}
	return bay, nil
}

func (s *BayService) UpdateLabel(ctx context.Context, bayID, ownerID uint64, label string) error {
	label, err := normalizeLabel(label)
	if err != nil {
		return err
	}
	if err := s.bays.UpdateLabel(ctx, bayID, ownerID, label, s.now()); err != nil {
		return logFailure(s.log, "update label", translate(err), zap.Uint64("bay_id", bayID))
	}
	s.log.Info("bay label updated", zap.Uint64("bay_id", bayID), zap.String("label", label))
	return nil
}

// UpdateNote sets the owner's note.  A blank note clears it.
func (s *BayService) UpdateNote(ctx context.Context, bayID, ownerID uint64, note string) error {
	var ptr *string
	if n := strings.TrimSpace(note); n != "" {
		ptr = &n
	}
	if err := s.bays.UpdateNote(ctx, bayID, ownerID, ptr, s.now()); err != nil {
		return logFailure(s.log, "update note", translate(err), zap.Uint64("bay_id", bayID))
	}
	return nil
}

func (s *BayService) SetVisibility(ctx context.Context, bayID, ownerID uint64, visible bool) error {
	if err := s.bays.SetVisibility(ctx, bayID, ownerID, visible, s.now()); err != nil {
		return logFailure(s.log, "set visibility", translate(err), zap.Uint64("bay_id", bayID))
	}
	s.log.Info("bay visibility changed", zap.Uint64("bay_id", bayID), zap.Bool("visible", visible))
	return nil
}

func normalizeLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	switch {
	case label == "":
		return "", fail(KindInvalidInput, "label is required")
	case utf8.RuneCountInString(label) > maxLabelLen:
		return "", fail(KindInvalidInput, "label longer than %d characters", maxLabelLen)
	}
	return label, nil
}

// logFailure logs store failures; domain outcomes are the caller's to report.
func logFailure(log *zap.Logger, op string, err error, fields ...zap.Field) error {
	if KindOf(err) == KindStoreError {
		log.Error(op+" failed", append(fields, zap.Error(err))...)
	}
	return err
}
