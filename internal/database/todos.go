package database

import (
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/models"
)

// CreateTodo inserts a checklist item
func CreateTodo(userID, text string) (*models.Todo, error) {
	todo := &models.Todo{
		ID:        GenerateID(),
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	_, err := dbConn.Exec(rebind(
		"INSERT INTO todos (id, user_id, text, done, created_at) VALUES (?, ?, ?, ?, ?)"),
		todo.ID, todo.UserID, todo.Text, todo.Done, todo.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return todo, nil
}

// GetUserTodos lists a student's checklist, oldest first
func GetUserTodos(userID string) ([]*models.Todo, error) {
	rows, err := dbConn.Query(rebind(
		"SELECT id, user_id, text, done, created_at FROM todos WHERE user_id = ? ORDER BY created_at ASC"), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var todos []*models.Todo
	for rows.Next() {
		t := &models.Todo{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Text, &t.Done, &t.CreatedAt); err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

// SetTodoDone toggles a checklist item owned by the given user
func SetTodoDone(todoID, userID string, done bool) error {
	result, err := dbConn.Exec(rebind(
		"UPDATE todos SET done = ? WHERE id = ? AND user_id = ?"), done, todoID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTodo removes a checklist item owned by the given user
func DeleteTodo(todoID, userID string) error {
	result, err := dbConn.Exec(rebind("DELETE FROM todos WHERE id = ? AND user_id = ?"), todoID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
