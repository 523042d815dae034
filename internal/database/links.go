package database

import (
	"database/sql"

	"github.com/ChartMentor-io/chartmentor/internal/models"
)

// CreateCommunityLink inserts a community page row
func CreateCommunityLink(link *models.CommunityLink) (*models.CommunityLink, error) {
	link.ID = GenerateID()
	_, err := dbConn.Exec(rebind(
		"INSERT INTO community_links (id, label, url, premium_only, position) VALUES (?, ?, ?, ?, ?)"),
		link.ID, link.Label, link.URL, link.PremiumOnly, link.Position,
	)
	if err != nil {
		return nil, err
	}
	return link, nil
}

// GetCommunityLinks lists community rows in display order. When
// includePremium is false the premium-only rows are filtered out, which
// is what free and pending accounts see.
func GetCommunityLinks(includePremium bool) ([]*models.CommunityLink, error) {
	var rows *sql.Rows
	var err error
	if includePremium {
		rows, err = dbConn.Query(
			"SELECT id, label, url, premium_only, position FROM community_links ORDER BY position ASC")
	} else {
		rows, err = dbConn.Query(rebind(
			"SELECT id, label, url, premium_only, position FROM community_links WHERE premium_only = ? ORDER BY position ASC"),
			false,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*models.CommunityLink
	for rows.Next() {
		l := &models.CommunityLink{}
		if err := rows.Scan(&l.ID, &l.Label, &l.URL, &l.PremiumOnly, &l.Position); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// DeleteCommunityLink removes a community row
func DeleteCommunityLink(id string) error {
	result, err := dbConn.Exec(rebind("DELETE FROM community_links WHERE id = ?"), id)
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
