// Package seed provides helpers to create demo data for the moderation
// database. These helpers are intended for development and testing only.
package seed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"warden/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	// seed gofakeit for richer content
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{db: db, opts: opts, nextID: 1000}
}

// ContentHash returns the duplicate-matching fingerprint for post content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// CreateUser constructs and persists a sample account.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:           gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:              gofakeit.Email(),
		Role:               models.RoleUser,
		Status:             models.AccountActive,
		EmailNotifications: true,
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: username=%s role=%s status=%s", user.Username, user.Role, user.Status)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post struct without persisting it. Useful for
// batching. The content hash is always populated so cascade matching works
// on seeded data.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	content := gofakeit.Paragraph(1, 3, 5, "\n")
	post := &models.Post{
		Title:       gofakeit.Sentence(5),
		Content:     content,
		UserID:      user.ID,
		Status:      models.PostModeration,
		ContentHash: ContentHash(content),
		ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()),
	}

	// realistic created_at spread
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := rand.IntN(maxDays)
	hoursBack := rand.IntN(24)
	minsBack := rand.IntN(60)
	post.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour - time.Duration(minsBack)*time.Minute)

	for _, override := range overrides {
		override(post)
	}
	// overrides may replace the content; keep the fingerprint in sync
	if post.ContentHash == "" || post.Content != content {
		post.ContentHash = ContentHash(post.Content)
	}
	return post
}

// CreatePost constructs and persists a sample post for the given user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, overrides...)

	if f.opts.DryRun {
		f.nextID++
		post.ID = f.nextID
		log.Printf("[dry-run] CreatePost: user=%d status=%s title=%q", post.UserID, post.Status, post.Title)
		return post, nil
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	if len(posts) == 0 {
		return nil
	}
	return f.db.Create(&posts).Error
}

// CreateComment constructs and persists a sample comment on the provided
// post authored by the provided user.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Content: gofakeit.Sentence(8),
		UserID:  user.ID,
		PostID:  post.ID,
		Status:  models.CommentApproved,
	}

	for _, override := range overrides {
		override(comment)
	}

	if f.opts.DryRun {
		f.nextID++
		comment.ID = f.nextID
		log.Printf("[dry-run] CreateComment: user=%d post=%d", comment.UserID, comment.PostID)
		return comment, nil
	}

	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateReport persists a report filed by `reporter` against the given item.
func (f *Factory) CreateReport(reporter *models.User, contentType string, contentID uint, overrides ...func(*models.Report)) (*models.Report, error) {
	report := &models.Report{
		ContentType: contentType,
		ContentID:   contentID,
		ReporterID:  reporter.ID,
		Reason:      gofakeit.RandomString([]string{"spam", "harassment", "nsfw", "scam", "impersonation"}),
		Status:      models.ReportPending,
	}

	for _, override := range overrides {
		override(report)
	}

	if f.opts.DryRun {
		f.nextID++
		report.ID = f.nextID
		log.Printf("[dry-run] CreateReport: %s/%d by user %d", report.ContentType, report.ContentID, report.ReporterID)
		return report, nil
	}

	if err := f.db.Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

// CreateWithdrawal persists a withdrawal request for the given user.
func (f *Factory) CreateWithdrawal(user *models.User, overrides ...func(*models.WithdrawalRequest)) (*models.WithdrawalRequest, error) {
	withdrawal := &models.WithdrawalRequest{
		UserID: user.ID,
		Amount: int64(gofakeit.Number(500, 50000)),
		Status: models.WithdrawalPending,
	}

	for _, override := range overrides {
		override(withdrawal)
	}

	if f.opts.DryRun {
		f.nextID++
		withdrawal.ID = f.nextID
		log.Printf("[dry-run] CreateWithdrawal: user=%d amount=%d", withdrawal.UserID, withdrawal.Amount)
		return withdrawal, nil
	}

	if err := f.db.Create(withdrawal).Error; err != nil {
		return nil, err
	}
	return withdrawal, nil
}

// CreateDecision persists a historical moderation decision, used to seed
// strike history for escalation demos.
func (f *Factory) CreateDecision(moderator *models.User, target *models.User, decision string, age time.Duration, overrides ...func(*models.ModerationDecision)) (*models.ModerationDecision, error) {
	record := &models.ModerationDecision{
		TargetType:   "user",
		TargetID:     target.ID,
		ModeratorID:  moderator.ID,
		Decision:     decision,
		Reason:       gofakeit.Sentence(6),
		DecisionCode: fmt.Sprintf("%06d", gofakeit.Number(0, 999999)),
		CreatedAt:    time.Now().Add(-age),
	}

	for _, override := range overrides {
		override(record)
	}

	if f.opts.DryRun {
		f.nextID++
		record.ID = f.nextID
		log.Printf("[dry-run] CreateDecision: %s on user %d", record.Decision, record.TargetID)
		return record, nil
	}

	if err := f.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}
