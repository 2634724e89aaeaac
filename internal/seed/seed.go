package seed

import (
	"fmt"
	"log"
	"time"

	"warden/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control how much demo data Run generates.
type Options struct {
	Users       int
	Posts       int
	Reports     int
	Withdrawals int

	// MaxDays spreads created_at timestamps over the past N days.
	MaxDays int

	// SkipBcrypt stores plaintext passwords for faster local seeding.
	SkipBcrypt bool

	// DryRun logs what would be created without writing to the database.
	DryRun bool
}

// DefaultOptions is the preset used by the seed command when no flags are
// given.
func DefaultOptions() Options {
	return Options{
		Users:       25,
		Posts:       60,
		Reports:     40,
		Withdrawals: 8,
		MaxDays:     60,
	}
}

// Run populates the database with a moderation workload: staff accounts,
// regular users in assorted states, posts awaiting review with duplicate
// clusters, flagged comments, open reports, pending withdrawals and a
// strike history close to the escalation threshold.
func Run(db *gorm.DB, opts Options) error {
	f := NewFactory(db, opts)

	staff, err := seedStaff(f)
	if err != nil {
		return fmt.Errorf("seed staff: %w", err)
	}

	users, err := seedUsers(f, opts.Users)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	posts, err := seedPosts(f, users, opts.Posts)
	if err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}

	comments, err := seedComments(f, users, posts)
	if err != nil {
		return fmt.Errorf("seed comments: %w", err)
	}

	if err := seedReports(f, users, posts, comments, opts.Reports); err != nil {
		return fmt.Errorf("seed reports: %w", err)
	}

	if err := seedWithdrawals(f, users, opts.Withdrawals); err != nil {
		return fmt.Errorf("seed withdrawals: %w", err)
	}

	if err := seedStrikeHistory(f, staff, users); err != nil {
		return fmt.Errorf("seed strike history: %w", err)
	}

	log.Printf("seeded %d staff, %d users, %d posts, %d comments", len(staff), len(users), len(posts), len(comments))
	return nil
}

// seedStaff creates one admin and two moderators with fixed usernames so
// they are easy to log in as during development.
func seedStaff(f *Factory) ([]*models.User, error) {
	var staff []*models.User
	presets := []struct {
		username string
		role     models.Role
	}{
		{"warden_admin", models.RoleAdmin},
		{"warden_mod1", models.RoleModerator},
		{"warden_mod2", models.RoleModerator},
	}
	for _, p := range presets {
		user, err := f.CreateUser(func(u *models.User) {
			u.Username = p.username
			u.Email = p.username + "@warden.local"
			u.Role = p.role
			u.IsVerified = true
		})
		if err != nil {
			return nil, err
		}
		staff = append(staff, user)
	}
	return staff, nil
}

func seedUsers(f *Factory, count int) ([]*models.User, error) {
	var users []*models.User
	for i := 0; i < count; i++ {
		n := i
		user, err := f.CreateUser(func(u *models.User) {
			switch {
			case n%7 == 3:
				// repeat offender profile
				u.SpamScore = gofakeit.Number(40, 80)
			case n%7 == 5:
				u.ShadowBanned = true
			case n%9 == 4:
				u.Status = models.AccountModeration
				u.ModerationReason = "queued by upstream classifier"
			}
			if n%5 == 0 {
				u.Balance = int64(gofakeit.Number(1000, 100000))
				u.CopyrightEligible = true
			}
		})
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// seedPosts builds the review queue. Roughly a third of posts stay in
// moderation, the rest are published; every fifth moderation post gets two
// duplicates from the same author so the cascade has something to match.
func seedPosts(f *Factory, users []*models.User, count int) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, nil
	}

	var posts []*models.Post
	for i := 0; i < count; i++ {
		author := users[i%len(users)]
		status := models.PostPublished
		if i%3 == 0 {
			status = models.PostModeration
		}
		post := f.BuildPost(author, func(p *models.Post) {
			p.Status = status
			if i%11 == 2 {
				p.IsNSFW = true
			}
			if status == models.PostModeration {
				p.ModerationCategory = gofakeit.RandomString([]string{"spam", "nsfw", "scam"})
				p.ModerationScore = gofakeit.Float64Range(0.5, 0.99)
			}
		})
		posts = append(posts, post)

		// duplicate cluster: same author, same content hash
		if status == models.PostModeration && i%5 == 0 {
			for j := 0; j < 2; j++ {
				dup := f.BuildPost(author, func(p *models.Post) {
					p.Title = post.Title
					p.Content = post.Content
					p.Status = models.PostModeration
				})
				posts = append(posts, dup)
			}
		}
	}

	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func seedComments(f *Factory, users []*models.User, posts []*models.Post) ([]*models.Comment, error) {
	if len(users) == 0 || len(posts) == 0 {
		return nil, nil
	}

	var comments []*models.Comment
	for i, post := range posts {
		if i%2 != 0 {
			continue
		}
		commenter := users[(i+1)%len(users)]
		comment, err := f.CreateComment(commenter, post, func(c *models.Comment) {
			if i%6 == 0 {
				c.IsNSFW = true
				c.ModerationCategory = "nsfw"
			}
		})
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

func seedReports(f *Factory, users []*models.User, posts []*models.Post, comments []*models.Comment, count int) error {
	if len(users) < 2 {
		return nil
	}
	for i := 0; i < count; i++ {
		reporter := users[i%len(users)]

		var contentType string
		var contentID uint
		switch {
		case len(posts) > 0 && i%3 != 2:
			contentType = models.ReportTargetPost
			contentID = posts[i%len(posts)].ID
		case len(comments) > 0 && i%3 == 2:
			contentType = models.ReportTargetComment
			contentID = comments[i%len(comments)].ID
		default:
			contentType = models.ReportTargetUser
			contentID = users[(i+1)%len(users)].ID
		}

		if _, err := f.CreateReport(reporter, contentType, contentID); err != nil {
			return err
		}
	}
	return nil
}

func seedWithdrawals(f *Factory, users []*models.User, count int) error {
	for i := 0; i < count && i < len(users); i++ {
		user := users[i]
		if _, err := f.CreateWithdrawal(user, func(w *models.WithdrawalRequest) {
			if i%3 == 1 {
				w.Status = models.WithdrawalProcessing
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

// seedStrikeHistory gives the first regular user two recent bans, one more
// ban away from automatic escalation.
func seedStrikeHistory(f *Factory, staff, users []*models.User) error {
	if len(staff) == 0 || len(users) == 0 {
		return nil
	}
	moderator := staff[len(staff)-1]
	offender := users[0]
	for _, age := range []time.Duration{20 * 24 * time.Hour, 6 * 24 * time.Hour} {
		if _, err := f.CreateDecision(moderator, offender, models.DecisionBlocked, age); err != nil {
			return err
		}
	}
	return nil
}

// HashPassword is exported for callers that create accounts outside the
// factory, such as the root admin bootstrap.
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
