package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/repository"
)

type users struct{ conn }

func (r users) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if err := r.st.fault("users.Create"); err != nil {
		return nil, err
	}
	email := strings.ToLower(u.Email)
	for _, existing := range r.st.t.users {
		if existing.Email == email || existing.Username == u.Username {
			return nil, domain.ErrEmailTaken
		}
	}
	now := time.Now()
	created := *u
	created.ID = r.st.nextID()
	created.Email = email
	created.CreatedAt, created.UpdatedAt = now, now
	keep(r.conn, r.st.t.users, created.ID)
	r.st.t.users[created.ID] = created
	return &created, nil
}

func (r users) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.t.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r users) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, u := range r.st.t.users {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r users) MarkHost(_ context.Context, id int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if u, ok := r.st.t.users[id]; ok {
		keep(r.conn, r.st.t.users, id)
		u.IsHost = true
		r.st.t.users[id] = u
	}
	return nil
}

type properties struct{ conn }

func (r properties) Create(_ context.Context, hostID int64, in domain.PropertyInput) (*domain.Property, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.t.users[hostID]; !ok {
		return nil, fmt.Errorf("create property: %w", domain.ErrNotFound)
	}
	now := time.Now()
	p := domain.Property{
		ID:                 r.st.nextID(),
		HostID:             hostID,
		Title:              in.Title,
		Description:        in.Description,
		PropertyType:       in.PropertyType,
		DailyPrice:         in.DailyPrice,
		MaxGuests:          in.MaxGuests,
		Bedrooms:           in.Bedrooms,
		Bathrooms:          in.Bathrooms,
		Address:            in.Address,
		City:               in.City,
		Country:            in.Country,
		Latitude:           in.Latitude,
		Longitude:          in.Longitude,
		IsInstantBook:      in.IsInstantBook,
		CancellationPolicy: in.CancellationPolicy,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	keep(r.conn, r.st.t.properties, p.ID)
	r.st.t.properties[p.ID] = p
	return &p, nil
}

func (r properties) GetByID(_ context.Context, id int64) (*domain.Property, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if err := r.st.fault("properties.GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.st.t.properties[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r properties) Update(_ context.Context, p *domain.Property) (*domain.Property, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	existing, ok := r.st.t.properties[p.ID]
	if !ok {
		return nil, nil
	}
	updated := *p
	updated.HostID = existing.HostID
	updated.IsActive = existing.IsActive
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()
	keep(r.conn, r.st.t.properties, p.ID)
	r.st.t.properties[p.ID] = updated
	return &updated, nil
}

func (r properties) SetActive(_ context.Context, id int64, active bool) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if p, ok := r.st.t.properties[id]; ok {
		keep(r.conn, r.st.t.properties, id)
		p.IsActive = active
		r.st.t.properties[id] = p
	}
	return nil
}

func (r properties) Search(_ context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var out []domain.Property
	for _, p := range r.st.t.properties {
		if !p.IsActive {
			continue
		}
		if f.City != "" && !strings.EqualFold(p.City, f.City) {
			continue
		}
		if f.Guests > 0 && p.MaxGuests != nil && *p.MaxGuests < f.Guests {
			continue
		}
		if f.MinPrice != nil && p.DailyPrice.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.DailyPrice.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.InstantBook != nil && p.IsInstantBook != *f.InstantBook {
			continue
		}
		if f.Stay != nil {
			a, _ := r.st.ledger(p.ID).Check(p.ID, *f.Stay)
			if !a.Available {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, f.Limit, f.Offset, 20), nil
}

// ledger builds the occupancy view of one property. Callers hold mu.
func (st *state) ledger(propertyID int64) *domain.Ledger {
	var (
		ovs []domain.AvailabilityOverride
		bks []domain.Booking
	)
	for k, o := range st.t.overrides {
		if k.propertyID == propertyID {
			ovs = append(ovs, o)
		}
	}
	for _, b := range st.t.bookings {
		if b.PropertyID == propertyID {
			bks = append(bks, b)
		}
	}
	return domain.NewLedger(ovs, bks)
}

func page[T any](items []T, limit, offset, def int) []T {
	if limit <= 0 || limit > 100 {
		limit = def
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type images struct{ conn }

func (r images) Add(_ context.Context, propertyID int64, in domain.ImageInput) (*domain.PropertyImage, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if in.IsPrimary {
		for _, img := range r.st.t.images {
			if img.PropertyID == propertyID && img.IsPrimary {
				return nil, &domain.StoreError{Op: "add image", Err: fmt.Errorf("duplicate primary image")}
			}
		}
	}
	img := domain.PropertyImage{
		ID:           r.st.nextID(),
		PropertyID:   propertyID,
		URL:          in.URL,
		Caption:      in.Caption,
		DisplayOrder: in.DisplayOrder,
		IsPrimary:    in.IsPrimary,
		CreatedAt:    time.Now(),
	}
	keep(r.conn, r.st.t.images, img.ID)
	r.st.t.images[img.ID] = img
	return &img, nil
}

func (r images) List(_ context.Context, propertyID int64) ([]domain.PropertyImage, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []domain.PropertyImage
	for _, img := range r.st.t.images {
		if img.PropertyID == propertyID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r images) ClearPrimary(_ context.Context, propertyID int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for id, img := range r.st.t.images {
		if img.PropertyID == propertyID && img.IsPrimary {
			keep(r.conn, r.st.t.images, id)
			img.IsPrimary = false
			r.st.t.images[id] = img
		}
	}
	return nil
}

func (r images) SetPrimary(_ context.Context, propertyID, imageID int64) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	img, ok := r.st.t.images[imageID]
	if !ok || img.PropertyID != propertyID {
		return false, nil
	}
	for _, other := range r.st.t.images {
		if other.PropertyID == propertyID && other.IsPrimary && other.ID != imageID {
			return false, &domain.StoreError{Op: "set primary image", Err: fmt.Errorf("duplicate primary image")}
		}
	}
	keep(r.conn, r.st.t.images, imageID)
	img.IsPrimary = true
	r.st.t.images[imageID] = img
	return true, nil
}

type availability struct{ conn }

func (r availability) Overrides(_ context.Context, propertyID int64, from, to domain.Date) ([]domain.AvailabilityOverride, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []domain.AvailabilityOverride
	for k, o := range r.st.t.overrides {
		if k.propertyID == propertyID && !k.date.Before(from) && k.date.Before(to) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r availability) Upsert(_ context.Context, overrides []domain.AvailabilityOverride) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, o := range overrides {
		k := overrideKey{o.PropertyID, o.Date}
		keep(r.conn, r.st.t.overrides, k)
		r.st.t.overrides[k] = o
	}
	return nil
}

type bookings struct{ conn }

func (r bookings) Create(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if err := r.st.fault("bookings.Create"); err != nil {
		return nil, err
	}
	if !r.holds(b.PropertyID) {
		return nil, errUnlocked
	}
	p, ok := r.st.t.properties[b.PropertyID]
	if !ok {
		return nil, fmt.Errorf("create booking: %w", domain.ErrNotFound)
	}
	if _, ok := r.st.t.users[b.GuestID]; !ok {
		return nil, fmt.Errorf("create booking: %w", domain.ErrNotFound)
	}
	// exclusion constraint
	if b.Holds() {
		for _, other := range r.st.t.bookings {
			if other.PropertyID == b.PropertyID && other.Holds() && other.Stay().Overlaps(b.Stay()) {
				return nil, fmt.Errorf("create booking: %w", domain.ErrUnavailable)
			}
		}
	}
	now := time.Now()
	created := *b
	created.ID = r.st.nextID()
	created.HostID = p.HostID
	created.CreatedAt, created.UpdatedAt = now, now
	keep(r.conn, r.st.t.bookings, created.ID)
	r.st.t.bookings[created.ID] = created
	return &created, nil
}

func (r bookings) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if err := r.st.fault("bookings.GetByID"); err != nil {
		return nil, err
	}
	b, ok := r.st.t.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r bookings) GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r bookings) Holding(_ context.Context, propertyID int64, stay domain.Stay) ([]domain.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []domain.Booking
	for _, b := range r.st.t.bookings {
		if b.PropertyID == propertyID && b.Holds() && b.Stay().Overlaps(stay) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (r bookings) UpdateStatus(_ context.Context, b *domain.Booking) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	existing, ok := r.st.t.bookings[b.ID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.Status = b.Status
	existing.CancellationReason = b.CancellationReason
	existing.CancelledBy = b.CancelledBy
	existing.CancelledAt = b.CancelledAt
	existing.UpdatedAt = time.Now()
	b.UpdatedAt = existing.UpdatedAt
	keep(r.conn, r.st.t.bookings, b.ID)
	r.st.t.bookings[b.ID] = existing
	return nil
}

func (r bookings) ListByGuest(_ context.Context, guestID int64, f domain.BookingFilter) ([]domain.Booking, error) {
	return r.list(func(b *domain.Booking) bool { return b.GuestID == guestID }, f), nil
}

func (r bookings) ListByHost(_ context.Context, hostID int64, f domain.BookingFilter) ([]domain.Booking, error) {
	return r.list(func(b *domain.Booking) bool { return b.HostID == hostID }, f), nil
}

func (r bookings) list(match func(*domain.Booking) bool, f domain.BookingFilter) []domain.Booking {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []domain.Booking
	for _, b := range r.st.t.bookings {
		if match(&b) && f.Matches(&b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckIn != out[j].CheckIn {
			return out[j].CheckIn.Before(out[i].CheckIn)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, f.Limit, f.Offset, 20)
}

type idempotency struct{ conn }

func (r idempotency) Lookup(_ context.Context, guestID int64, key string) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	e, ok := r.st.t.idem[repository.HashKey(guestID, key)]
	if !ok || time.Now().After(e.expiresAt) {
		return 0, nil
	}
	return e.bookingID, nil
}

func (r idempotency) Save(_ context.Context, guestID int64, key string, bookingID int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	h := repository.HashKey(guestID, key)
	if e, ok := r.st.t.idem[h]; ok && time.Now().Before(e.expiresAt) {
		return fmt.Errorf("save idempotency key: %w", domain.ErrIdempotencyConflict)
	}
	keep(r.conn, r.st.t.idem, h)
	r.st.t.idem[h] = idemEntry{bookingID: bookingID, expiresAt: time.Now().Add(24 * time.Hour)}
	return nil
}

func (r idempotency) CleanupExpired(_ context.Context) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var n int64
	for k, e := range r.st.t.idem {
		if time.Now().After(e.expiresAt) {
			keep(r.conn, r.st.t.idem, k)
			delete(r.st.t.idem, k)
			n++
		}
	}
	return n, nil
}

type threads struct{ conn }

func (r threads) GetOrCreate(_ context.Context, key domain.ThreadKey) (*domain.Thread, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, t := range r.st.t.threads {
		if key.Matches(&t) {
			return &t, nil
		}
	}
	t := domain.Thread{
		ID:         r.st.nextID(),
		PropertyID: key.PropertyID,
		GuestID:    key.GuestID,
		HostID:     key.HostID,
		CreatedAt:  time.Now(),
	}
	keep(r.conn, r.st.t.threads, t.ID)
	r.st.t.threads[t.ID] = t
	return &t, nil
}

func (r threads) GetByID(_ context.Context, id int64) (*domain.Thread, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	t, ok := r.st.t.threads[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r threads) ListForUser(_ context.Context, userID int64) ([]domain.Thread, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []domain.Thread
	for _, t := range r.st.t.threads {
		if !t.IsParticipant(userID) {
			continue
		}
		for _, m := range r.st.t.messages {
			if m.ThreadID == t.ID && m.RecipientID == userID && !m.IsRead {
				t.UnreadCount++
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastMessageAt, out[j].LastMessageAt
		switch {
		case a == nil && b == nil:
			return out[i].ID > out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r threads) AddMessage(_ context.Context, m *domain.Message) (*domain.Message, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if err := r.st.fault("threads.AddMessage"); err != nil {
		return nil, err
	}
	if _, ok := r.st.t.threads[m.ThreadID]; !ok {
		return nil, fmt.Errorf("add message: %w", domain.ErrNotFound)
	}
	created := *m
	created.ID = r.st.nextID()
	created.IsRead = false
	created.CreatedAt = time.Now()
	keep(r.conn, r.st.t.messages, created.ID)
	r.st.t.messages[created.ID] = created
	return &created, nil
}

func (r threads) Touch(_ context.Context, threadID int64, at time.Time) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if err := r.st.fault("threads.Touch"); err != nil {
		return err
	}
	if t, ok := r.st.t.threads[threadID]; ok {
		if t.LastMessageAt != nil && t.LastMessageAt.After(at) {
			return nil
		}
		keep(r.conn, r.st.t.threads, threadID)
		t.LastMessageAt = &at
		r.st.t.threads[threadID] = t
	}
	return nil
}

func (r threads) MarkRead(_ context.Context, threadID, readerID int64) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var n int64
	for id, m := range r.st.t.messages {
		if m.ThreadID == threadID && m.RecipientID == readerID && !m.IsRead {
			keep(r.conn, r.st.t.messages, id)
			m.IsRead = true
			r.st.t.messages[id] = m
			n++
		}
	}
	return n, nil
}

func (r threads) ListMessages(_ context.Context, threadID int64, limit, offset int) ([]domain.Message, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []domain.Message
	for _, m := range r.st.t.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset, 50), nil
}

type reviews struct{ conn }

func (r reviews) Create(_ context.Context, rv *domain.Review) (*domain.Review, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.t.reviews {
		if existing.BookingID == rv.BookingID {
			return nil, domain.ErrAlreadyReviewed
		}
	}
	created := *rv
	created.ID = r.st.nextID()
	created.CreatedAt = time.Now()
	keep(r.conn, r.st.t.reviews, created.ID)
	r.st.t.reviews[created.ID] = created
	return &created, nil
}

func (r reviews) GetByBooking(_ context.Context, bookingID int64) (*domain.Review, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, rv := range r.st.t.reviews {
		if rv.BookingID == bookingID {
			return &rv, nil
		}
	}
	return nil, nil
}

func (r reviews) ListByProperty(_ context.Context, propertyID int64, limit, offset int) ([]domain.Review, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []domain.Review
	for _, rv := range r.st.t.reviews {
		if rv.PropertyID == propertyID && !rv.IsFlagged {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset, 20), nil
}

func (r reviews) Stats(_ context.Context, propertyID int64) (domain.ReviewSummary, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var all []domain.Review
	for _, rv := range r.st.t.reviews {
		if rv.PropertyID == propertyID && !rv.IsFlagged {
			all = append(all, rv)
		}
	}
	s := domain.Summarize(propertyID, all)
	s.Reviews = nil
	return s, nil
}

type lists struct{ conn }

func (r lists) Add(_ context.Context, kind domain.ListKind, userID, propertyID int64) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.t.properties[propertyID]; !ok {
		return false, fmt.Errorf("add %s item: %w", kind, domain.ErrNotFound)
	}
	k := listKey{kind, userID, propertyID}
	if _, ok := r.st.t.lists[k]; ok {
		return false, nil
	}
	keep(r.conn, r.st.t.lists, k)
	r.st.t.lists[k] = time.Now()
	return true, nil
}

func (r lists) Remove(_ context.Context, kind domain.ListKind, userID, propertyID int64) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	k := listKey{kind, userID, propertyID}
	if _, ok := r.st.t.lists[k]; !ok {
		return false, nil
	}
	keep(r.conn, r.st.t.lists, k)
	delete(r.st.t.lists, k)
	return true, nil
}

func (r lists) Count(_ context.Context, kind domain.ListKind, userID int64) (int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	n := 0
	for k := range r.st.t.lists {
		if k.kind == kind && k.userID == userID {
			n++
		}
	}
	return n, nil
}

func (r lists) List(_ context.Context, kind domain.ListKind, userID int64) ([]domain.ListItem, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []domain.ListItem
	for k, at := range r.st.t.lists {
		if k.kind != kind || k.userID != userID {
			continue
		}
		p := r.st.t.properties[k.propertyID]
		out = append(out, domain.ListItem{PropertyID: k.propertyID, AddedAt: at, Property: &p})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.After(out[j].AddedAt)
		}
		return out[i].PropertyID > out[j].PropertyID
	})
	return out, nil
}
