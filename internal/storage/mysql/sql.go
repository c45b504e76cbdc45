package mysql

// One row per processor intent; a repeated record keeps the earliest
// session and only ever moves reconciled from 0 to 1.
const insertAttemptSQL = `
INSERT INTO payment_attempts
  (session_id, booking_id, amount, payment_intent_id, reconciled, last_error)
VALUES
  (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  id         = LAST_INSERT_ID(id),
  reconciled = GREATEST(reconciled, VALUES(reconciled)),
  last_error = IF(VALUES(reconciled) = 1, NULL, COALESCE(VALUES(last_error), last_error))
`

const listUnreconciledSQL = `
SELECT id, session_id, booking_id, amount, payment_intent_id, reconciled, last_error, created_at, updated_at
FROM payment_attempts
WHERE reconciled = 0
ORDER BY id
LIMIT ?
`

const markReconciledSQL = `
UPDATE payment_attempts
SET reconciled = 1, attempts = attempts + 1, last_error = NULL
WHERE id = ?
`

const markFailedSQL = `
UPDATE payment_attempts
SET attempts = attempts + 1, last_error = ?
WHERE id = ? AND reconciled = 0
`

const getAttemptByIntentSQL = `
SELECT id, session_id, booking_id, amount, payment_intent_id, reconciled, last_error, created_at, updated_at
FROM payment_attempts
WHERE payment_intent_id = ?
`
