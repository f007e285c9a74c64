package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/cityfix/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketUsers         = []byte("users")
	bucketIssues        = []byte("issues")
	bucketNotifications = []byte("notifications")
	bucketMessages      = []byte("messages")
	bucketPayments      = []byte("payments")

	// Index buckets, rebuilt by Reindex
	bucketUsersByEmail      = []byte("users_by_email")
	bucketPaymentsBySession = []byte("payments_by_session")
)

// DBFile is the database file name inside the data directory
const DBFile = "cityfix.db"

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketUsers,
			bucketIssues,
			bucketNotifications,
			bucketMessages,
			bucketPayments,
			bucketUsersByEmail,
			bucketPaymentsBySession,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database answers a read transaction
func (s *BoltStore) Ping() error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketIssues) == nil {
			return fmt.Errorf("bucket %s missing", bucketIssues)
		}
		return nil
	})
}

// Backup writes a consistent copy of the database to w
func (s *BoltStore) Backup(w io.Writer) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		n, err = tx.WriteTo(w)
		return err
	})
	return n, err
}

// Reindex drops and rebuilds every index bucket from the document buckets.
// It returns the number of index entries written.
func (s *BoltStore) Reindex() (int, error) {
	count := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketUsersByEmail, bucketPaymentsBySession} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return fmt.Errorf("failed to drop index %s: %w", name, err)
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("failed to create index %s: %w", name, err)
			}
		}

		emails := tx.Bucket(bucketUsersByEmail)
		err := tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			var user types.User
			if err := json.Unmarshal(v, &user); err != nil {
				return err
			}
			key := emailKey(user.Email)
			if existing := emails.Get(key); existing != nil {
				return fmt.Errorf("email %s shared by users %s and %s: %w", user.Email, existing, k, ErrConflict)
			}
			count++
			return emails.Put(key, []byte(user.ID))
		})
		if err != nil {
			return err
		}

		sessions := tx.Bucket(bucketPaymentsBySession)
		return tx.Bucket(bucketPayments).ForEach(func(k, v []byte) error {
			var payment types.Payment
			if err := json.Unmarshal(v, &payment); err != nil {
				return err
			}
			if payment.SessionID == "" {
				return nil
			}
			count++
			return sessions.Put([]byte(payment.SessionID), []byte(payment.ID))
		})
	})
	return count, err
}

// Helper functions

func putJSON(b *bolt.Bucket, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(id), data)
}

func getJSON(b *bolt.Bucket, kind, id string, v interface{}) error {
	data := b.Get([]byte(id))
	if data == nil {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return json.Unmarshal(data, v)
}

func emailKey(email string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(email)))
}

// --- User operations ---

// CreateUser stores a new user, rejecting missing and duplicate emails
func (s *BoltStore) CreateUser(user *types.User) error {
	key := emailKey(user.Email)
	if len(key) == 0 {
		return ErrEmailRequired
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		emails := tx.Bucket(bucketUsersByEmail)
		if emails.Get(key) != nil {
			return fmt.Errorf("email %s already registered: %w", user.Email, ErrConflict)
		}
		if err := putJSON(tx.Bucket(bucketUsers), user.ID, user); err != nil {
			return err
		}
		return emails.Put(key, []byte(user.ID))
	})
}

func (s *BoltStore) GetUser(id string) (*types.User, error) {
	var user types.User
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketUsers), "user", id, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail looks a user up through the email index
func (s *BoltStore) GetUserByEmail(email string) (*types.User, error) {
	var user types.User
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketUsersByEmail).Get(emailKey(email))
		if id == nil {
			return fmt.Errorf("user with email %s: %w", email, ErrNotFound)
		}
		return getJSON(tx.Bucket(bucketUsers), "user", string(id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns users with the given role, newest first.
// An empty role returns every user.
func (s *BoltStore) ListUsers(role types.Role) ([]*types.User, error) {
	users := []*types.User{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			var user types.User
			if err := json.Unmarshal(v, &user); err != nil {
				return err
			}
			if role == "" || user.Role == role {
				users = append(users, &user)
			}
			return nil
		})
	})
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, err
}

// UpdateUser applies fn to the stored user inside one write transaction
func (s *BoltStore) UpdateUser(id string, fn func(*types.User) error) (*types.User, error) {
	var user types.User
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		if err := getJSON(b, "user", id, &user); err != nil {
			return err
		}
		oldKey := emailKey(user.Email)

		if err := fn(&user); err != nil {
			return err
		}
		user.ID = id

		newKey := emailKey(user.Email)
		if len(newKey) == 0 {
			return ErrEmailRequired
		}
		if string(newKey) != string(oldKey) {
			emails := tx.Bucket(bucketUsersByEmail)
			if owner := emails.Get(newKey); owner != nil && string(owner) != id {
				return fmt.Errorf("email %s already registered: %w", user.Email, ErrConflict)
			}
			if err := emails.Delete(oldKey); err != nil {
				return err
			}
			if err := emails.Put(newKey, []byte(id)); err != nil {
				return err
			}
		}
		return putJSON(b, id, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *BoltStore) DeleteUser(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		var user types.User
		if err := getJSON(b, "user", id, &user); err != nil {
			return err
		}
		if err := tx.Bucket(bucketUsersByEmail).Delete(emailKey(user.Email)); err != nil {
			return err
		}
		return b.Delete([]byte(id))
	})
}

// --- Issue operations ---

func (s *BoltStore) CreateIssue(issue *types.Issue) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketIssues)
		if b.Get([]byte(issue.ID)) != nil {
			return fmt.Errorf("issue %s: %w", issue.ID, ErrConflict)
		}
		return putJSON(b, issue.ID, issue)
	})
}

func (s *BoltStore) GetIssue(id string) (*types.Issue, error) {
	var issue types.Issue
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketIssues), "issue", id, &issue)
	})
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (s *BoltStore) matchIssues(f IssueFilter) ([]*types.Issue, error) {
	var matched []*types.Issue
	err := s.db.View(func(tx *bolt.Tx) error {
		sets, err := matchIssuesTx(tx, f)
		if err != nil {
			return err
		}
		matched = sets[0]
		return nil
	})
	return matched, err
}

// matchIssuesTx scans the issues bucket once and returns the matches of
// each filter in order
func matchIssuesTx(tx *bolt.Tx, filters ...IssueFilter) ([][]*types.Issue, error) {
	sets := make([][]*types.Issue, len(filters))
	for i := range sets {
		sets[i] = []*types.Issue{}
	}
	err := tx.Bucket(bucketIssues).ForEach(func(k, v []byte) error {
		var issue types.Issue
		if err := json.Unmarshal(v, &issue); err != nil {
			return err
		}
		for i, f := range filters {
			if f.Match(&issue) {
				doc := issue
				sets[i] = append(sets[i], &doc)
			}
		}
		return nil
	})
	return sets, err
}

// QueryIssues returns the sorted window of issues matching q.Filter
func (s *BoltStore) QueryIssues(q IssueQuery) ([]*types.Issue, error) {
	matched, err := s.matchIssues(q.Filter)
	if err != nil {
		return nil, err
	}
	sortIssues(matched, q.Sort)
	return window(matched, q.Offset, q.Limit), nil
}

// CountIssues returns the number of issues matching f
func (s *BoltStore) CountIssues(f IssueFilter) (int, error) {
	matched, err := s.matchIssues(f)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// QueryPartitions counts and windows both partitions of q inside one read
// transaction, so a concurrent write cannot move an issue between the
// counts and the windows
func (s *BoltStore) QueryPartitions(q PartitionQuery) (*PartitionResult, error) {
	var out PartitionResult
	err := s.db.View(func(tx *bolt.Tx) error {
		sets, err := matchIssuesTx(tx, q.First, q.Second)
		if err != nil {
			return err
		}
		first, second := sets[0], sets[1]
		out.FirstTotal, out.SecondTotal = len(first), len(second)

		fw, sw := q.Plan(out.FirstTotal, out.SecondTotal)
		sortIssues(first, q.FirstSort)
		sortIssues(second, q.SecondSort)
		out.First = fw.apply(first)
		out.Second = sw.apply(second)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateIssue applies fn to the stored issue inside one write transaction
func (s *BoltStore) UpdateIssue(id string, fn func(*types.Issue) error) (*types.Issue, error) {
	var issue types.Issue
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketIssues)
		if err := getJSON(b, "issue", id, &issue); err != nil {
			return err
		}
		if err := fn(&issue); err != nil {
			return err
		}
		issue.ID = id
		return putJSON(b, id, &issue)
	})
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// DeleteIssue removes the issue and its message thread
func (s *BoltStore) DeleteIssue(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketIssues)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("issue %s: %w", id, ErrNotFound)
		}

		messages := tx.Bucket(bucketMessages)
		var thread [][]byte
		err := messages.ForEach(func(k, v []byte) error {
			var m types.Message
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			if m.IssueID == id {
				thread = append(thread, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range thread {
			if err := messages.Delete(k); err != nil {
				return err
			}
		}
		return b.Delete([]byte(id))
	})
}

// --- Notification operations ---

func (s *BoltStore) CreateNotification(n *types.Notification) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(bucketNotifications), n.ID, n)
	})
}

func (s *BoltStore) GetNotification(id string) (*types.Notification, error) {
	var n types.Notification
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketNotifications), "notification", id, &n)
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotifications returns the user's notifications, newest first
func (s *BoltStore) ListNotifications(userID string) ([]*types.Notification, error) {
	list := []*types.Notification{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNotifications).ForEach(func(k, v []byte) error {
			var n types.Notification
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			if n.UserID == userID {
				list = append(list, &n)
			}
			return nil
		})
	})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, err
}

func (s *BoltStore) UpdateNotification(id string, fn func(*types.Notification) error) (*types.Notification, error) {
	var n types.Notification
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)
		if err := getJSON(b, "notification", id, &n); err != nil {
			return err
		}
		if err := fn(&n); err != nil {
			return err
		}
		n.ID = id
		return putJSON(b, id, &n)
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllNotificationsRead flags every unread notification of the user
// and returns how many changed
func (s *BoltStore) MarkAllNotificationsRead(userID string) (int, error) {
	changed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)

		// Buckets must not be modified inside ForEach
		var unread []*types.Notification
		err := b.ForEach(func(k, v []byte) error {
			var n types.Notification
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			if n.UserID == userID && !n.Read {
				unread = append(unread, &n)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, n := range unread {
			n.Read = true
			if err := putJSON(b, n.ID, n); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	return changed, err
}

func (s *BoltStore) DeleteNotification(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}
		return b.Delete([]byte(id))
	})
}

// --- Message operations ---

func (s *BoltStore) CreateMessage(m *types.Message) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(bucketMessages), m.ID, m)
	})
}

func (s *BoltStore) GetMessage(id string) (*types.Message, error) {
	var m types.Message
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketMessages), "message", id, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *BoltStore) listMessages(match func(*types.Message) bool) ([]*types.Message, error) {
	list := []*types.Message{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMessages).ForEach(func(k, v []byte) error {
			var m types.Message
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			if match(&m) {
				list = append(list, &m)
			}
			return nil
		})
	})
	return list, err
}

// ListContactMessages returns contact-form messages, newest first
func (s *BoltStore) ListContactMessages() ([]*types.Message, error) {
	list, err := s.listMessages(func(m *types.Message) bool { return m.IssueID == "" })
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, err
}

// ListIssueMessages returns an issue thread in posting order
func (s *BoltStore) ListIssueMessages(issueID string) ([]*types.Message, error) {
	list, err := s.listMessages(func(m *types.Message) bool { return m.IssueID == issueID })
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, err
}

func (s *BoltStore) UpdateMessage(id string, fn func(*types.Message) error) (*types.Message, error) {
	var m types.Message
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMessages)
		if err := getJSON(b, "message", id, &m); err != nil {
			return err
		}
		if err := fn(&m); err != nil {
			return err
		}
		m.ID = id
		return putJSON(b, id, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *BoltStore) DeleteMessage(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMessages)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("message %s: %w", id, ErrNotFound)
		}
		return b.Delete([]byte(id))
	})
}

// --- Payment operations ---

// CreatePayment stores a payment and indexes its checkout session
func (s *BoltStore) CreatePayment(p *types.Payment) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if p.SessionID != "" {
			sessions := tx.Bucket(bucketPaymentsBySession)
			if sessions.Get([]byte(p.SessionID)) != nil {
				return fmt.Errorf("session %s already recorded: %w", p.SessionID, ErrConflict)
			}
			if err := sessions.Put([]byte(p.SessionID), []byte(p.ID)); err != nil {
				return err
			}
		}
		return putJSON(tx.Bucket(bucketPayments), p.ID, p)
	})
}

func (s *BoltStore) GetPayment(id string) (*types.Payment, error) {
	var p types.Payment
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketPayments), "payment", id, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPaymentBySession looks a payment up by its checkout session ID
func (s *BoltStore) GetPaymentBySession(sessionID string) (*types.Payment, error) {
	var p types.Payment
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketPaymentsBySession).Get([]byte(sessionID))
		if id == nil {
			return fmt.Errorf("payment for session %s: %w", sessionID, ErrNotFound)
		}
		return getJSON(tx.Bucket(bucketPayments), "payment", string(id), &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPayments returns payments matching f, newest first
func (s *BoltStore) ListPayments(f PaymentFilter) ([]*types.Payment, error) {
	list := []*types.Payment{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPayments).ForEach(func(k, v []byte) error {
			var p types.Payment
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			if f.Match(&p) {
				list = append(list, &p)
			}
			return nil
		})
	})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, err
}

// UpdatePayment applies fn to the stored payment inside one write transaction.
// The session ID is immutable once recorded.
func (s *BoltStore) UpdatePayment(id string, fn func(*types.Payment) error) (*types.Payment, error) {
	var p types.Payment
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPayments)
		if err := getJSON(b, "payment", id, &p); err != nil {
			return err
		}
		session := p.SessionID
		if err := fn(&p); err != nil {
			return err
		}
		p.ID = id
		p.SessionID = session
		return putJSON(b, id, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
