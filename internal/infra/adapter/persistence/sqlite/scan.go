package sqlite

import (
	"database/sql"

	"notice-dispatch/internal/domain/entity"
)

type scanner interface{ Scan(...any) error }

const (
	userColumns        = `id, username, email, locale, slack_user_id, is_active, is_superuser`
	noticeTypeColumns  = `id, label, display, description, default_sensitivity`
	settingColumns     = `id, user_id, notice_type_id, medium, send`
	noticeColumns      = `id, user_id, sender_id, message, notice_type_id, added, unseen, archived, on_site`
	observationColumns = `id, content_type, object_id, notice_type_id, observer_id, signal, message_template, added`
)

func scanUser(s scanner) (*entity.User, error) {
	var u entity.User
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.Locale, &u.SlackUserID, &u.IsActive, &u.IsSuperuser); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanNoticeType(s scanner) (*entity.NoticeType, error) {
	var nt entity.NoticeType
	if err := s.Scan(&nt.ID, &nt.Label, &nt.Display, &nt.Description, &nt.Default); err != nil {
		return nil, err
	}
	return &nt, nil
}

func scanSetting(s scanner) (*entity.NoticeSetting, error) {
	var ns entity.NoticeSetting
	if err := s.Scan(&ns.ID, &ns.UserID, &ns.NoticeTypeID, &ns.Medium, &ns.Send); err != nil {
		return nil, err
	}
	return &ns, nil
}

func scanNotice(s scanner) (*entity.Notice, error) {
	var n entity.Notice
	var sender sql.NullInt64
	if err := s.Scan(&n.ID, &n.UserID, &sender, &n.Message, &n.NoticeTypeID,
		&n.Added, &n.Unseen, &n.Archived, &n.OnSite); err != nil {
		return nil, err
	}
	if sender.Valid {
		n.SenderID = &sender.Int64
	}
	return &n, nil
}

func scanObservation(s scanner) (*entity.Observation, error) {
	var o entity.Observation
	if err := s.Scan(&o.ID, &o.ContentType, &o.ObjectID, &o.NoticeTypeID,
		&o.ObserverID, &o.SignalName, &o.MessageTemplate, &o.Added); err != nil {
		return nil, err
	}
	return &o, nil
}

// collect drains rows through scan, closing rows when done.
func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer func() { _ = rows.Close() }()
	out := make([]T, 0, 16)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// affected converts a zero-row result into entity.ErrNotFound.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}
