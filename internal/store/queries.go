package store

// SQL query constants organized by entity.
// All SQL lives here; PostgresStore methods reference these constants.

// Product queries.
const (
	queryUpsertProduct = `
		INSERT INTO products (
			id, name, price, image_url, url,
			sizes, stock_level, category,
			first_seen_at, last_seen_at, is_active
		) VALUES (
			@id, @name, @price, @image_url, @url,
			@sizes, @stock_level, @category,
			now(), now(), TRUE
		)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			image_url = EXCLUDED.image_url,
			url = EXCLUDED.url,
			sizes = EXCLUDED.sizes,
			stock_level = EXCLUDED.stock_level,
			category = EXCLUDED.category,
			last_seen_at = now(),
			is_active = TRUE
		RETURNING first_seen_at, last_seen_at`

	queryGetProduct = `
		SELECT id, name, price, COALESCE(image_url, ''), url,
			COALESCE(sizes, '{}'), stock_level, category,
			first_seen_at, last_seen_at, last_alert_at, alert_count, is_active
		FROM products
		WHERE id = $1`

	queryListActiveProducts = `
		SELECT id, name, price, COALESCE(image_url, ''), url,
			COALESCE(sizes, '{}'), stock_level, category,
			first_seen_at, last_seen_at, last_alert_at, alert_count, is_active
		FROM products
		WHERE is_active
		ORDER BY last_seen_at DESC, id
		LIMIT $1`

	queryDeactivateMissing = `
		UPDATE products
		SET is_active = FALSE
		WHERE is_active AND NOT (id = ANY($1))`

	queryMarkAlerted = `
		UPDATE products
		SET last_alert_at = now(), alert_count = alert_count + 1
		WHERE id = $1`

	queryCountActiveProducts = `SELECT COUNT(*) FROM products WHERE is_active`
)

// Alert log queries.
const (
	queryInsertAlert = `
		INSERT INTO alerts (product_id, alert_type, created_at)
		VALUES ($1, $2, now())`

	queryCountAlertsSince = `
		SELECT COUNT(*) FROM alerts
		WHERE alert_type = $1 AND created_at >= $2`

	queryCountAllAlerts = `SELECT COUNT(*) FROM alerts`
)

// Check log queries.
const (
	queryInsertCheck = `
		INSERT INTO checks (found, alerts_sent, checked_at)
		VALUES ($1, $2, now())`

	queryLastCheckAt = `
		SELECT checked_at FROM checks
		ORDER BY checked_at DESC
		LIMIT 1`
)
