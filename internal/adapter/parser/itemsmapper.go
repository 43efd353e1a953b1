package parser

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"feedloader/internal/domain"

	"github.com/google/uuid"
)

// objectJSON хранит поля объекта; ключи сравниваются с учетом регистра.
type objectJSON map[string]json.RawMessage

const canonicalUUIDLen = 36

type encodedRootJSON struct {
	Items []encodedItemJSON `json:"items"`
}

type encodedItemJSON struct {
	ID          string  `json:"id"`
	Location    *string `json:"location,omitempty"`
	Description *string `json:"description,omitempty"`
	Image       string  `json:"image"`
}

// MapItems преобразует код ответа и тело в список элементов ленты.
// Любой код кроме 200 и любая ошибка декодирования дают domain.ErrInvalidData.
// Частичных результатов не бывает: либо все элементы, либо ошибка.
func MapItems(data []byte, statusCode int) ([]domain.FeedItem, error) {
	if statusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", domain.ErrInvalidData, statusCode)
	}
	var root objectJSON
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: failed to decode JSON: %v", domain.ErrInvalidData, err)
	}
	rawItems, ok := root["items"]
	if !ok {
		return nil, fmt.Errorf("%w: missing items array", domain.ErrInvalidData)
	}
	var entries []objectJSON
	if err := json.Unmarshal(rawItems, &entries); err != nil {
		return nil, fmt.Errorf("%w: failed to decode items: %v", domain.ErrInvalidData, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: missing items array", domain.ErrInvalidData)
	}
	items := make([]domain.FeedItem, 0, len(entries))
	for i, entry := range entries {
		item, err := entry.toItem()
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", domain.ErrInvalidData, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (o objectJSON) toItem() (domain.FeedItem, error) {
	rawID, err := o.requiredString("id")
	if err != nil {
		return domain.FeedItem{}, err
	}
	id, err := parseCanonicalUUID(rawID)
	if err != nil {
		return domain.FeedItem{}, err
	}
	rawImage, err := o.requiredString("image")
	if err != nil {
		return domain.FeedItem{}, err
	}
	imageURL, err := parseAbsoluteURL(rawImage)
	if err != nil {
		return domain.FeedItem{}, err
	}
	location, err := o.optionalString("location")
	if err != nil {
		return domain.FeedItem{}, err
	}
	description, err := o.optionalString("description")
	if err != nil {
		return domain.FeedItem{}, err
	}
	return domain.NewFeedItem(id, location, description, *imageURL), nil
}

func (o objectJSON) requiredString(key string) (string, error) {
	v, err := o.optionalString(key)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", fmt.Errorf("missing %s", key)
	}
	return *v, nil
}

// optionalString возвращает nil для отсутствующего ключа и для null.
func (o objectJSON) optionalString(key string) (*string, error) {
	raw, ok := o[key]
	if !ok {
		return nil, nil
	}
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// parseCanonicalUUID принимает только форму xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx в любом регистре.
func parseCanonicalUUID(raw string) (uuid.UUID, error) {
	if len(raw) != canonicalUUIDLen {
		return uuid.UUID{}, fmt.Errorf("invalid id %q", raw)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid id %q: %w", raw, err)
	}
	return id, nil
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid image url %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("image url %q is not absolute", raw)
	}
	return u, nil
}

// EncodeItems кодирует элементы в тот же формат {"items": [...]}, который разбирает MapItems.
// Пустые необязательные поля не попадают в JSON.
func EncodeItems(items []domain.FeedItem) ([]byte, error) {
	root := encodedRootJSON{Items: make([]encodedItemJSON, 0, len(items))}
	for _, item := range items {
		root.Items = append(root.Items, encodedItemJSON{
			ID:          item.ID.String(),
			Location:    item.Location,
			Description: item.Description,
			Image:       item.ImageURL.String(),
		})
	}
	data, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}
	return data, nil
}
