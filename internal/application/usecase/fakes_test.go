package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"coursemarket/internal/domain"

	"github.com/google/uuid"
)

type memCatalog struct {
	mu          sync.Mutex
	courses     map[uuid.UUID]*domain.Course
	invalidated []uuid.UUID
}

func newMemCatalog(courses ...*domain.Course) *memCatalog {
	c := &memCatalog{courses: make(map[uuid.UUID]*domain.Course)}
	for _, course := range courses {
		c.courses[course.ID] = course
	}
	return c
}

func (c *memCatalog) GetCourse(_ context.Context, id uuid.UUID) (*domain.Course, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	course, ok := c.courses[id]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	cp := *course
	cp.Lectures = append([]domain.Lecture(nil), course.Lectures...)
	return &cp, nil
}

func (c *memCatalog) GetCourseDetail(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	return c.GetCourse(ctx, id)
}

func (c *memCatalog) InvalidateCourseDetail(_ context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, id)
}

func (c *memCatalog) addLecture(courseID uuid.UUID) uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.New()
	c.courses[courseID].Lectures = append(c.courses[courseID].Lectures, domain.Lecture{ID: id, CourseID: courseID})
	return id
}

func (c *memCatalog) unlockPreviews(courseID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	course := c.courses[courseID]
	for i := range course.Lectures {
		course.Lectures[i].IsPreviewFree = true
	}
}

type memPurchases struct {
	mu        sync.Mutex
	catalog   *memCatalog
	purchases map[uuid.UUID]*domain.Purchase

	userCourses    map[[2]uuid.UUID]int
	courseStudents map[[2]uuid.UUID]int
	unlocks        map[uuid.UUID]int

	failGrants int // number of upcoming grants that fail and roll back
	createErr  error
}

func newMemPurchases(catalog *memCatalog) *memPurchases {
	return &memPurchases{
		catalog:        catalog,
		purchases:      make(map[uuid.UUID]*domain.Purchase),
		userCourses:    make(map[[2]uuid.UUID]int),
		courseStudents: make(map[[2]uuid.UUID]int),
		unlocks:        make(map[uuid.UUID]int),
	}
}

func (s *memPurchases) Create(_ context.Context, p *domain.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *p
	s.purchases[p.ID] = &cp
	return nil
}

func (s *memPurchases) AttachSession(_ context.Context, id uuid.UUID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.purchases[id]
	if !ok {
		return domain.ErrPurchaseNotFound
	}
	p.GatewaySessionID = &sessionID
	return nil
}

func (s *memPurchases) CompleteAndGrant(_ context.Context, sessionID string, amount int64) (*domain.Purchase, domain.WebhookOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p *domain.Purchase
	for _, candidate := range s.purchases {
		if candidate.GatewaySessionID != nil && *candidate.GatewaySessionID == sessionID {
			p = candidate
			break
		}
	}
	if p == nil {
		return nil, domain.WebhookIgnored, domain.ErrPurchaseNotFound
	}

	switch p.Status {
	case domain.PurchaseCompleted:
		p.Amount = amount
		cp := *p
		return &cp, domain.WebhookDuplicate, nil
	case domain.PurchasePending:
	default:
		cp := *p
		return &cp, domain.WebhookIgnored, nil
	}

	if s.failGrants > 0 {
		s.failGrants--
		return nil, domain.WebhookIgnored, context.DeadlineExceeded
	}

	p.Status = domain.PurchaseCompleted
	p.Amount = amount
	s.unlocks[p.CourseID]++
	s.catalog.unlockPreviews(p.CourseID)
	s.userCourses[[2]uuid.UUID{p.UserID, p.CourseID}]++
	s.courseStudents[[2]uuid.UUID{p.CourseID, p.UserID}]++

	cp := *p
	return &cp, domain.WebhookApplied, nil
}

func (s *memPurchases) HasCompleted(_ context.Context, userID, courseID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.purchases {
		if p.UserID == userID && p.CourseID == courseID && p.Status == domain.PurchaseCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (s *memPurchases) ListCompleted(_ context.Context) ([]domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Purchase
	for _, p := range s.purchases {
		if p.Status == domain.PurchaseCompleted {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memPurchases) bySession(sessionID string) *domain.Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.purchases {
		if p.GatewaySessionID != nil && *p.GatewaySessionID == sessionID {
			cp := *p
			return &cp
		}
	}
	return nil
}

func (s *memPurchases) setStatus(sessionID string, status domain.PurchaseStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.purchases {
		if p.GatewaySessionID != nil && *p.GatewaySessionID == sessionID {
			p.Status = status
		}
	}
}

func (s *memPurchases) all() []domain.Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Purchase
	for _, p := range s.purchases {
		out = append(out, *p)
	}
	return out
}

type memProgress struct {
	mu       sync.Mutex
	records  map[uuid.UUID]*domain.CourseProgress
	lectures map[uuid.UUID]map[uuid.UUID]bool

	// conflicts forces the next N SetCompleted calls to lose the CAS.
	conflicts int
}

func newMemProgress() *memProgress {
	return &memProgress{
		records:  make(map[uuid.UUID]*domain.CourseProgress),
		lectures: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (s *memProgress) findLocked(userID, courseID uuid.UUID) *domain.CourseProgress {
	for _, r := range s.records {
		if r.UserID == userID && r.CourseID == courseID {
			return r
		}
	}
	return nil
}

func (s *memProgress) snapshotLocked(r *domain.CourseProgress) *domain.CourseProgress {
	cp := *r
	cp.Lectures = []domain.LectureProgress{}
	for lectureID, viewed := range s.lectures[r.ID] {
		cp.Lectures = append(cp.Lectures, domain.LectureProgress{ProgressID: r.ID, LectureID: lectureID, Viewed: viewed})
	}
	return &cp
}

func (s *memProgress) Ensure(_ context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findLocked(userID, courseID)
	if r == nil {
		r = &domain.CourseProgress{ID: uuid.New(), UserID: userID, CourseID: courseID}
		s.records[r.ID] = r
		s.lectures[r.ID] = make(map[uuid.UUID]bool)
	}
	return s.snapshotLocked(r), nil
}

func (s *memProgress) Find(_ context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findLocked(userID, courseID)
	if r == nil {
		return nil, domain.ErrProgressNotFound
	}
	return s.snapshotLocked(r), nil
}

func (s *memProgress) FindByID(_ context.Context, id uuid.UUID) (*domain.CourseProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, domain.ErrProgressNotFound
	}
	return s.snapshotLocked(r), nil
}

func (s *memProgress) MarkViewed(_ context.Context, progressID, lectureID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lectures[progressID][lectureID] = true
	return nil
}

func (s *memProgress) CountViewed(_ context.Context, progressID uuid.UUID, lectureIDs []uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range lectureIDs {
		if s.lectures[progressID][id] {
			n++
		}
	}
	return n, nil
}

func (s *memProgress) SetCompleted(_ context.Context, progressID uuid.UUID, version int64, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.records[progressID]
	if s.conflicts > 0 {
		s.conflicts--
		r.Version++
		return domain.ErrVersionConflict
	}
	if r.Version != version {
		return domain.ErrVersionConflict
	}
	r.Completed = completed
	r.Version++
	return nil
}

func (s *memProgress) SetAll(_ context.Context, userID, courseID uuid.UUID, viewed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findLocked(userID, courseID)
	if r == nil {
		return domain.ErrProgressNotFound
	}
	for id := range s.lectures[r.ID] {
		s.lectures[r.ID][id] = viewed
	}
	r.Completed = viewed
	r.Version++
	return nil
}

func (s *memProgress) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// fakeGateway signs events with hex HMAC-SHA256 of the body.
type fakeGateway struct {
	mu       sync.Mutex
	secret   string
	sessions []domain.CheckoutRequest
	err      error
	block    bool
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.sessions = append(g.sessions, req)
	id := "cs_test_" + req.PurchaseID
	return &domain.CheckoutSession{ID: id, URL: "https://checkout.example/" + id}, nil
}

type fakeEvent struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	SessionID   string            `json:"session_id"`
	AmountTotal int64             `json:"amount_total"`
	Metadata    map[string]string `json:"metadata"`
}

func (g *fakeGateway) ParseEvent(payload []byte, signature string) (*domain.GatewayEvent, error) {
	if sign(payload, g.secret) != signature {
		return nil, domain.ErrInvalidSignature
	}
	var e fakeEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return &domain.GatewayEvent{ID: e.ID, Type: e.Type, SessionID: e.SessionID, AmountTotal: e.AmountTotal, Metadata: e.Metadata}, nil
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func signedEvent(secret string, e fakeEvent) ([]byte, string) {
	payload, _ := json.Marshal(e)
	return payload, sign(payload, secret)
}
