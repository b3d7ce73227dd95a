package kitchen

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// DefaultMaxImageBytes: предельный размер картинки блюда.
const DefaultMaxImageBytes = 2 << 20

// DecodeImage читает загруженный файл и превращает его в data URL.
// Тип определяется по содержимому; принимаются только изображения.
func DecodeImage(r io.Reader, maxBytes int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", domain.NewValidationError("image", "image is empty")
	}
	if int64(len(data)) > maxBytes {
		return "", domain.NewValidationError("image", fmt.Sprintf("image exceeds %d bytes", maxBytes))
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", domain.NewValidationError("image", fmt.Sprintf("unsupported image type %s", mtype.String()))
	}
	mediaType, _, _ := strings.Cut(mtype.String(), ";")
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// CreateMenuItem добавляет блюдо. image может быть nil.
func (a *Admin) CreateMenuItem(ctx context.Context, in domain.MenuItemInput, image io.Reader) (domain.MenuItem, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return domain.MenuItem{}, a.rejectAll("create_menu_item", errs)
	}
	dataURL, err := a.decodeImage(image)
	if err != nil {
		return domain.MenuItem{}, a.reject("create_menu_item", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	item, err := a.menu.Create(ctx, domain.MenuItem{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Image:       dataURL,
	})
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("create menu item: %w", err)
	}
	return item, nil
}

// UpdateMenuItem меняет блюдо. Без новой картинки сохраняется прежняя. Неизвестный ID: тихий промах.
func (a *Admin) UpdateMenuItem(ctx context.Context, id string, in domain.MenuItemInput, image io.Reader) (domain.MenuItem, bool, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return domain.MenuItem{}, false, a.rejectAll("update_menu_item", errs)
	}
	dataURL, err := a.decodeImage(image)
	if err != nil {
		return domain.MenuItem{}, false, a.reject("update_menu_item", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	item, found, err := a.menu.Update(ctx, id, func(m domain.MenuItem) domain.MenuItem {
		m.Name = in.Name
		m.Description = in.Description
		m.Price = in.Price
		if dataURL != "" {
			m.Image = dataURL
		}
		return m
	})
	if err != nil {
		return domain.MenuItem{}, found, fmt.Errorf("update menu item: %w", err)
	}
	if !found {
		a.miss("update_menu_item", id)
	}
	return item, found, nil
}

// DeleteMenuItem удаляет блюдо.
func (a *Admin) DeleteMenuItem(ctx context.Context, id string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed, err := a.menu.Remove(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete menu item: %w", err)
	}
	if !removed {
		a.miss("delete_menu_item", id)
	}
	return removed, nil
}

// MenuItems возвращает блюда в порядке создания.
func (a *Admin) MenuItems() []domain.MenuItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.menu.Snapshot()
}

func (a *Admin) decodeImage(r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	return DecodeImage(r, a.cfg.MaxImageBytes)
}
