package database

import (
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/models"
)

// CreateCourse inserts a curriculum entry
func CreateCourse(course *models.Course) (*models.Course, error) {
	course.ID = GenerateID()
	course.CreatedAt = time.Now().UTC()
	_, err := dbConn.Exec(rebind(
		"INSERT INTO courses (id, title, description, tier_required, position, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		course.ID, course.Title, course.Description, string(course.TierRequired), course.Position, course.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return course, nil
}

// GetCourses lists the curriculum in display order
func GetCourses() ([]*models.Course, error) {
	rows, err := dbConn.Query(
		"SELECT id, title, description, tier_required, position, created_at FROM courses ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		c := &models.Course{}
		var tier string
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &tier, &c.Position, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.TierRequired = models.ParseTier(tier)
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// CreateCourseModule inserts a lesson into a course
func CreateCourseModule(mod *models.CourseModule) (*models.CourseModule, error) {
	mod.ID = GenerateID()
	_, err := dbConn.Exec(rebind(
		"INSERT INTO course_modules (id, course_id, title, content, position) VALUES (?, ?, ?, ?, ?)"),
		mod.ID, mod.CourseID, mod.Title, mod.Content, mod.Position,
	)
	if err != nil {
		return nil, err
	}
	return mod, nil
}

// GetCourseModules lists a course's lessons in order
func GetCourseModules(courseID string) ([]*models.CourseModule, error) {
	rows, err := dbConn.Query(rebind(
		"SELECT id, course_id, title, content, position FROM course_modules WHERE course_id = ? ORDER BY position ASC"),
		courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mods []*models.CourseModule
	for rows.Next() {
		m := &models.CourseModule{}
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Title, &m.Content, &m.Position); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

// EnrollUser records a student starting a course. Re-enrolling is a no-op
// at the caller's level; the unique constraint surfaces as an error here.
func EnrollUser(userID, courseID string) error {
	_, err := dbConn.Exec(rebind(
		"INSERT INTO enrollments (id, user_id, course_id, enrolled_at) VALUES (?, ?, ?, ?)"),
		GenerateID(), userID, courseID, time.Now().UTC(),
	)
	return err
}

// EnrollmentCount pairs a course title with how many students enrolled
type EnrollmentCount struct {
	CourseID string
	Title    string
	Count    int
}

// GetEnrollmentCounts returns per-course enrollment totals
func GetEnrollmentCounts() ([]EnrollmentCount, error) {
	rows, err := dbConn.Query(
		`SELECT c.id, c.title, COUNT(e.id)
		 FROM courses c LEFT JOIN enrollments e ON e.course_id = c.id
		 GROUP BY c.id, c.title ORDER BY c.position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []EnrollmentCount
	for rows.Next() {
		var ec EnrollmentCount
		if err := rows.Scan(&ec.CourseID, &ec.Title, &ec.Count); err != nil {
			return nil, err
		}
		counts = append(counts, ec)
	}
	return counts, rows.Err()
}
