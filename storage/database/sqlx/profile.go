package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/profile"
)

const tutorProfileColumns = `p.user_id, p.bio, p.subjects, p.hourly_rate, p.avatar_url,
	p.meeting_access_token, p.meeting_refresh_token, p.meeting_token_expiry, p.created_at, p.updated_at,
	u.name AS name, COALESCE(r.avg_rating, 0) AS average_rating`

const tutorProfileFrom = ` FROM tutor_profile p
	JOIN "user" u ON u.id = p.user_id
	LEFT JOIN (SELECT tutor_id, AVG(rating) AS avg_rating FROM review GROUP BY tutor_id) r ON r.tutor_id = p.user_id`

type tutorProfileRow struct {
	UserID              string         `db:"user_id"`
	Bio                 null.String    `db:"bio"`
	Subjects            pq.StringArray `db:"subjects"`
	HourlyRate          null.Float64   `db:"hourly_rate"`
	AvatarURL           null.String    `db:"avatar_url"`
	MeetingAccessToken  null.String    `db:"meeting_access_token"`
	MeetingRefreshToken null.String    `db:"meeting_refresh_token"`
	MeetingTokenExpiry  null.Time      `db:"meeting_token_expiry"`
	CreatedAt           null.Time      `db:"created_at"`
	UpdatedAt           null.Time      `db:"updated_at"`
	Name                null.String    `db:"name"`
	AverageRating       float64        `db:"average_rating"`
}

type studentProfileRow struct {
	UserID     string      `db:"user_id"`
	Bio        null.String `db:"bio"`
	GradeLevel null.String `db:"grade_level"`
	AvatarURL  null.String `db:"avatar_url"`
	CreatedAt  null.Time   `db:"created_at"`
	UpdatedAt  null.Time   `db:"updated_at"`
	Name       null.String `db:"name"`
}

type profileRepository struct {
	exec core.DBExecutor
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(exec core.DBExecutor) *profileRepository {
	return &profileRepository{exec: exec}
}

func (repo profileRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo profileRepository) unpackTutor(r tutorProfileRow) profile.TutorProfile {
	return profile.TutorProfile{
		UserID:              r.UserID,
		Bio:                 r.Bio.String,
		Subjects:            r.Subjects,
		HourlyRate:          r.HourlyRate.Float64,
		AvatarURL:           r.AvatarURL.String,
		MeetingAccessToken:  r.MeetingAccessToken.String,
		MeetingRefreshToken: r.MeetingRefreshToken.String,
		MeetingTokenExpiry:  r.MeetingTokenExpiry.Time,
		CreatedAt:           r.CreatedAt.Time,
		UpdatedAt:           r.UpdatedAt.Time,
		Name:                r.Name.String,
		AverageRating:       r.AverageRating,
	}
}

func (repo profileRepository) unpackStudent(r studentProfileRow) profile.StudentProfile {
	return profile.StudentProfile{
		UserID:     r.UserID,
		Bio:        r.Bio.String,
		GradeLevel: r.GradeLevel.String,
		AvatarURL:  r.AvatarURL.String,
		CreatedAt:  r.CreatedAt.Time,
		UpdatedAt:  r.UpdatedAt.Time,
		Name:       r.Name.String,
	}
}

func (repo profileRepository) GetTutorProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (profile.TutorProfile, error) {
	var rows []tutorProfileRow
	query := `SELECT ` + tutorProfileColumns + tutorProfileFrom + ` WHERE p.user_id = $1`
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, userID); err != nil {
		return profile.TutorProfile{}, errors.Wrap(err, "finding tutor profile")
	}
	if len(rows) == 0 {
		return profile.TutorProfile{}, profile.ErrNotFound
	}
	return repo.unpackTutor(rows[0]), nil
}

func (repo profileRepository) QueryTutorProfiles(ctx context.Context, filter *profile.TutorQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]profile.TutorProfile, error) {
	var qb queryBuilder

	if filter != nil {
		// tutors with a name, bio or subject matching the search keyword
		if filter.Search != "" {
			val := qb.arg("%" + filter.Search + "%")
			qb.and(fmt.Sprintf(
				"(u.name ILIKE %[1]s OR p.bio ILIKE %[1]s OR EXISTS (SELECT 1 FROM UNNEST(p.subjects) subj WHERE subj ILIKE %[1]s))", val))
		}
		if filter.Subject != "" {
			qb.and(fmt.Sprintf("EXISTS (SELECT 1 FROM UNNEST(p.subjects) subj WHERE subj ILIKE %s)", qb.arg(filter.Subject)))
		}
		if filter.MinRate != nil {
			qb.and("p.hourly_rate >= " + qb.arg(*filter.MinRate))
		}
		if filter.MaxRate != nil {
			qb.and("p.hourly_rate <= " + qb.arg(*filter.MaxRate))
		}
	}

	var rows []tutorProfileRow
	query := `SELECT ` + tutorProfileColumns + tutorProfileFrom + qb.clause() + tutorOrderClause(ordering)
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, qb.args...); err != nil {
		return nil, errors.Wrap(err, "querying tutor profiles")
	}

	profiles := make([]profile.TutorProfile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, repo.unpackTutor(r))
	}
	return profiles, nil
}

func (repo profileRepository) UpsertTutorProfile(ctx context.Context, p profile.TutorProfile, exec ...core.DBExecutor) (profile.TutorProfile, error) {
	query := `INSERT INTO tutor_profile (user_id, bio, subjects, hourly_rate, avatar_url,
		meeting_access_token, meeting_refresh_token, meeting_token_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET bio = $2, subjects = $3, hourly_rate = $4, avatar_url = $5,
		meeting_access_token = $6, meeting_refresh_token = $7, meeting_token_expiry = $8, updated_at = $10`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		p.UserID,
		null.NewString(p.Bio, p.Bio != ""),
		pq.StringArray(p.Subjects),
		p.HourlyRate,
		null.NewString(p.AvatarURL, p.AvatarURL != ""),
		null.NewString(p.MeetingAccessToken, p.MeetingAccessToken != ""),
		null.NewString(p.MeetingRefreshToken, p.MeetingRefreshToken != ""),
		null.NewTime(p.MeetingTokenExpiry.UTC(), !p.MeetingTokenExpiry.IsZero()),
		null.NewTime(p.CreatedAt.UTC(), !p.CreatedAt.IsZero()),
		null.NewTime(p.UpdatedAt.UTC(), !p.UpdatedAt.IsZero()))
	if err != nil {
		return profile.TutorProfile{}, errors.Wrap(err, "upserting tutor profile")
	}
	return p, nil
}

func (repo profileRepository) GetStudentProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (profile.StudentProfile, error) {
	var rows []studentProfileRow
	query := `SELECT p.user_id, p.bio, p.grade_level, p.avatar_url, p.created_at, p.updated_at, u.name AS name
		FROM student_profile p JOIN "user" u ON u.id = p.user_id WHERE p.user_id = $1`
	if err := selectStructs(ctx, repo.getExec(exec), &rows, query, userID); err != nil {
		return profile.StudentProfile{}, errors.Wrap(err, "finding student profile")
	}
	if len(rows) == 0 {
		return profile.StudentProfile{}, profile.ErrNotFound
	}
	return repo.unpackStudent(rows[0]), nil
}

func (repo profileRepository) UpsertStudentProfile(ctx context.Context, p profile.StudentProfile, exec ...core.DBExecutor) (profile.StudentProfile, error) {
	query := `INSERT INTO student_profile (user_id, bio, grade_level, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET bio = $2, grade_level = $3, avatar_url = $4, updated_at = $6`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		p.UserID,
		null.NewString(p.Bio, p.Bio != ""),
		null.NewString(p.GradeLevel, p.GradeLevel != ""),
		null.NewString(p.AvatarURL, p.AvatarURL != ""),
		null.NewTime(p.CreatedAt.UTC(), !p.CreatedAt.IsZero()),
		null.NewTime(p.UpdatedAt.UTC(), !p.UpdatedAt.IsZero()))
	if err != nil {
		return profile.StudentProfile{}, errors.Wrap(err, "upserting student profile")
	}
	return p, nil
}

// tutorOrderClause qualifies bare columns with the "p" alias used by the
// tutor profile select.
func tutorOrderClause(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	qualified := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if ord.Field == "average_rating" || ord.Field == "name" {
			qualified = append(qualified, ord)
			continue
		}
		ord.Field = "p." + ord.Field
		qualified = append(qualified, ord)
	}
	return orderClause(qualified)
}
