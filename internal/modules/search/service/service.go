package service

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"anoa.com/blooddonation/internal/entity"
	"anoa.com/blooddonation/internal/modules/eligibility"
	"anoa.com/blooddonation/pkg/clock"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const (
	donorsIndex    = "donors"
	signingKeyName = "DonorSearchSigner"
	searchTokenTTL = 24 * time.Hour
)

// SearchService keeps the donor directory index in sync.
type SearchService interface {
	IndexDonor(profile *entity.Profile) error
	DeleteDonor(profileID uint) error
	GenerateSearchToken() (string, error)
}

type meiliSearchService struct {
	client        meilisearch.ServiceManager
	signingKeyUID string
	signingKey    string
	sanitizer     *bluemonday.Policy
	logger        *zap.Logger
}

func NewMeiliSearchService(client meilisearch.ServiceManager, logger *zap.Logger) SearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
	s.initIndex()
	s.initSigningKey()
	return s
}

func (s *meiliSearchService) initSigningKey() {
	resp, err := s.client.GetKeys(&meilisearch.KeysQuery{Limit: 20})
	if err != nil {
		s.logger.Warn("failed to list meilisearch keys", zap.Error(err))
		return
	}

	for _, key := range resp.Results {
		if key.Name == signingKeyName {
			s.signingKeyUID = key.UID
			s.signingKey = key.Key
			return
		}
	}

	key, err := s.client.CreateKey(&meilisearch.Key{
		Description: "Signs tenant tokens for donor search",
		Name:        signingKeyName,
		Actions:     []string{"search"},
		Indexes:     []string{donorsIndex},
		ExpiresAt:   time.Now().AddDate(100, 0, 0),
	})
	if err != nil {
		s.logger.Warn("failed to create meilisearch signing key", zap.Error(err))
		return
	}

	s.signingKeyUID = key.UID
	s.signingKey = key.Key
	s.logger.Info("created meilisearch signing key")
}

func (s *meiliSearchService) initIndex() {
	filterable := []any{"blood_group", "city", "ever_donated"}
	if _, err := s.client.Index(donorsIndex).UpdateFilterableAttributes(&filterable); err != nil {
		s.logger.Warn("failed to update donors filterable attributes", zap.Error(err))
	}

	sortable := []string{"next_possible_donation_ts", "created_at"}
	if _, err := s.client.Index(donorsIndex).UpdateSortableAttributes(&sortable); err != nil {
		s.logger.Warn("failed to update donors sortable attributes", zap.Error(err))
	}
}

type donorDoc struct {
	ID                     string  `json:"id"`
	Name                   string  `json:"name"`
	BloodGroup             string  `json:"blood_group"`
	City                   string  `json:"city"`
	Bio                    string  `json:"bio"`
	EverDonated            bool    `json:"ever_donated"`
	LastDonation           *string `json:"last_donation"`
	NextPossibleDonation   *string `json:"next_possible_donation"`
	NextPossibleDonationTS int64   `json:"next_possible_donation_ts"`
	Photo                  string  `json:"photo"`
	CreatedAt              int64   `json:"created_at"`
}

// buildDonorDoc flattens a donor profile. Availability is stored as the next
// possible date rather than a boolean so the index does not go stale.
func (s *meiliSearchService) buildDonorDoc(p *entity.Profile) donorDoc {
	doc := donorDoc{
		ID:           strconv.FormatUint(uint64(p.ID), 10),
		Name:         p.Name,
		BloodGroup:   string(p.BloodGroup),
		City:         p.City,
		Bio:          s.cleanText(p.Bio),
		EverDonated:  p.EverDonated,
		LastDonation: clock.FormatDate(p.LastDonation),
		CreatedAt:    p.CreatedAt.Unix(),
	}
	if p.PhotoURL != nil {
		doc.Photo = *p.PhotoURL
	}
	if p.EverDonated && p.LastDonation != nil {
		next := eligibility.NextDate(*p.LastDonation)
		doc.NextPossibleDonation = clock.FormatDate(&next)
		doc.NextPossibleDonationTS = next.Unix()
	}
	return doc
}

func (s *meiliSearchService) cleanText(content string) string {
	sanitized := s.sanitizer.Sanitize(content)
	return strings.Join(strings.Fields(html.UnescapeString(sanitized)), " ")
}

func (s *meiliSearchService) IndexDonor(profile *entity.Profile) error {
	if profile.Role != entity.RoleDonor {
		return nil
	}

	doc := s.buildDonorDoc(profile)
	task, err := s.client.Index(donorsIndex).AddDocuments([]donorDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	s.logger.Debug("indexed donor", zap.Uint("profile_id", profile.ID), zap.Any("task_uid", task.TaskUID))
	return nil
}

func (s *meiliSearchService) DeleteDonor(profileID uint) error {
	_, err := s.client.Index(donorsIndex).DeleteDocument(strconv.FormatUint(uint64(profileID), 10))
	return err
}

// GenerateSearchToken returns a tenant token limited to the donors index.
func (s *meiliSearchService) GenerateSearchToken() (string, error) {
	if s.signingKeyUID == "" || s.signingKey == "" {
		return "", fmt.Errorf("signing key not initialized")
	}

	searchRules := map[string]any{
		donorsIndex: map[string]any{},
	}

	return s.client.GenerateTenantToken(s.signingKeyUID, searchRules, &meilisearch.TenantTokenOptions{
		APIKey:    s.signingKey,
		ExpiresAt: time.Now().Add(searchTokenTTL),
	})
}

func strPtr(s string) *string {
	return &s
}
