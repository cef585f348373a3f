package store

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"weblogd/internal/models"
)

// AddBan closes category to an address or CIDR network.
func (s *Store) AddBan(ctx context.Context, cidr string, category models.BanCategory, reason string) (*models.BanRule, error) {
	prefix, err := parseBanPrefix(cidr)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseBanCategory(string(category)); err != nil {
		return nil, err
	}

	rule := &models.BanRule{
		CIDR:      prefix.String(),
		Category:  category,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: s.clock(),
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ban_rules (cidr, category, reason, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(cidr, category) DO UPDATE SET reason = excluded.reason
	`, rule.CIDR, string(rule.Category), rule.Reason, dbFormatTime(rule.CreatedAt))
	if err != nil {
		return nil, err
	}
	rule.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// RemoveBan deletes a rule by id.
func (s *Store) RemoveBan(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ban_rules WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListBans returns every ban rule.
func (s *Store) ListBans(ctx context.Context) ([]models.BanRule, error) {
	return s.listBans(ctx, `SELECT id, cidr, category, reason, created_at FROM ban_rules ORDER BY id ASC`)
}

func (s *Store) listBans(ctx context.Context, query string, args ...any) ([]models.BanRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.BanRule{}
	for rows.Next() {
		var rule models.BanRule
		var category, createdAt string
		if err := rows.Scan(&rule.ID, &rule.CIDR, &category, &rule.Reason, &createdAt); err != nil {
			return nil, err
		}
		rule.Category = models.BanCategory(category)
		if rule.CreatedAt, err = dbParseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// IsAllowed reports whether ip passes every rule of category. Unparseable
// addresses are allowed, since rules can only name real networks.
func (s *Store) IsAllowed(ctx context.Context, ip string, category models.BanCategory) (bool, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return true, nil
	}
	addr = addr.Unmap()

	rules, err := s.listBans(ctx, `
		SELECT id, cidr, category, reason, created_at FROM ban_rules WHERE category = ?
	`, string(category))
	if err != nil {
		return false, err
	}
	for _, rule := range rules {
		prefix, err := netip.ParsePrefix(rule.CIDR)
		if err != nil {
			continue
		}
		if prefix.Contains(addr) {
			return false, nil
		}
	}
	return true, nil
}

func parseBanPrefix(raw string) (netip.Prefix, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return netip.Prefix{}, fmt.Errorf("address or network is required")
	}
	if strings.Contains(raw, "/") {
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid network %q: %w", raw, err)
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid address %q: %w", raw, err)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
