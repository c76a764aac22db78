// Package dbtest provides an in-memory implementation of db.Collection. It
// understands the subset of MongoDB filters and update operators the
// application issues: equality (including array membership and null
// matching missing fields), $in, $ne and $exists in filters, and $set,
// $setOnInsert, $unset, $inc and $addToSet in updates.
package dbtest

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection keeps documents in memory.
type Collection struct {
	mu     sync.Mutex
	docs   []bson.M
	unique []string
	err    error
	calls  int

	stall        <-chan struct{}
	beforeUpdate func()
}

// NewCollection returns an empty collection enforcing uniqueness of _id and
// of every key in unique.
func NewCollection(unique ...string) *Collection {
	return &Collection{unique: append([]string{"_id"}, unique...)}
}

// SetError makes every following operation fail with err. Pass nil to reset.
func (c *Collection) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Stall makes every following operation wait until release is closed.
// Pass nil to reset.
func (c *Collection) Stall(release <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stall = release
}

// BeforeUpdate runs fn once, right before the next update is applied. fn
// may use the collection.
func (c *Collection) BeforeUpdate(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beforeUpdate = fn
}

func (c *Collection) wait() {
	c.mu.Lock()
	release := c.stall
	c.mu.Unlock()
	if release != nil {
		<-release
	}
}

// Calls returns how many operations reached the collection.
func (c *Collection) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Len returns the number of stored documents.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// Docs returns copies of the stored documents.
func (c *Collection) Docs() []bson.M {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]bson.M, 0, len(c.docs))
	for _, doc := range c.docs {
		out = append(out, copyM(doc))
	}
	return out
}

func (c *Collection) begin() error {
	c.calls++
	return c.err
}

func (c *Collection) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	c.wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return nil, err
	}

	doc, err := toM(document)
	if err != nil {
		return nil, err
	}
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	if err := c.checkUnique(doc, -1); err != nil {
		return nil, err
	}

	c.docs = append(c.docs, doc)
	return &mongo.InsertOneResult{InsertedID: doc["_id"]}, nil
}

func (c *Collection) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	c.wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return mongo.NewSingleResultFromDocument(bson.M{}, err, bson.DefaultRegistry)
	}

	f, err := toM(filter)
	if err != nil {
		return mongo.NewSingleResultFromDocument(bson.M{}, err, bson.DefaultRegistry)
	}
	for _, doc := range c.docs {
		if matches(doc, f) {
			return mongo.NewSingleResultFromDocument(copyM(doc), nil, bson.DefaultRegistry)
		}
	}
	return mongo.NewSingleResultFromDocument(bson.M{}, mongo.ErrNoDocuments, bson.DefaultRegistry)
}

func (c *Collection) Find(_ context.Context, filter interface{}, _ ...*options.FindOptions) (*mongo.Cursor, error) {
	c.wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return nil, err
	}

	f, err := toM(filter)
	if err != nil {
		return nil, err
	}
	found := make([]interface{}, 0)
	for _, doc := range c.docs {
		if matches(doc, f) {
			found = append(found, copyM(doc))
		}
	}
	return mongo.NewCursorFromDocuments(found, nil, bson.DefaultRegistry)
}

func (c *Collection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.update(filter, update, false, opts...)
}

func (c *Collection) UpdateMany(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.update(filter, update, true, opts...)
}

func (c *Collection) update(filter, update interface{}, many bool, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.wait()

	c.mu.Lock()
	hook := c.beforeUpdate
	c.beforeUpdate = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return nil, err
	}

	f, err := toM(filter)
	if err != nil {
		return nil, err
	}
	u, err := toM(update)
	if err != nil {
		return nil, err
	}

	res := &mongo.UpdateResult{}
	for i, doc := range c.docs {
		if !matches(doc, f) {
			continue
		}
		res.MatchedCount++

		next := copyM(doc)
		if err := applyUpdate(next, u, false); err != nil {
			return nil, err
		}
		if err := c.checkUnique(next, i); err != nil {
			return nil, err
		}
		if !reflect.DeepEqual(doc, next) {
			c.docs[i] = next
			res.ModifiedCount++
		}
		if !many {
			break
		}
	}

	if res.MatchedCount == 0 && upsert(opts) {
		doc := bson.M{}
		for key, value := range f {
			if strings.HasPrefix(key, "$") || isOperatorDoc(value) || value == nil {
				continue
			}
			doc[key] = value
		}
		if err := applyUpdate(doc, u, true); err != nil {
			return nil, err
		}
		if _, ok := doc["_id"]; !ok {
			doc["_id"] = primitive.NewObjectID()
		}
		if err := c.checkUnique(doc, -1); err != nil {
			return nil, err
		}
		c.docs = append(c.docs, doc)
		res.UpsertedCount = 1
		res.UpsertedID = doc["_id"]
	}

	return res, nil
}

func (c *Collection) DeleteOne(_ context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return c.delete(filter, false)
}

func (c *Collection) DeleteMany(_ context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return c.delete(filter, true)
}

func (c *Collection) delete(filter interface{}, many bool) (*mongo.DeleteResult, error) {
	c.wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return nil, err
	}

	f, err := toM(filter)
	if err != nil {
		return nil, err
	}

	res := &mongo.DeleteResult{}
	kept := c.docs[:0]
	for _, doc := range c.docs {
		if matches(doc, f) && (many || res.DeletedCount == 0) {
			res.DeletedCount++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return res, nil
}

func (c *Collection) CountDocuments(_ context.Context, filter interface{}, _ ...*options.CountOptions) (int64, error) {
	c.wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(); err != nil {
		return 0, err
	}

	f, err := toM(filter)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, doc := range c.docs {
		if matches(doc, f) {
			n++
		}
	}
	return n, nil
}

func (c *Collection) checkUnique(doc bson.M, skip int) error {
	for _, key := range c.unique {
		value, ok := doc[key]
		if !ok || value == nil {
			continue
		}
		for i, other := range c.docs {
			if i == skip {
				continue
			}
			if existing, ok := other[key]; ok && equal(existing, value) {
				return mongo.WriteException{WriteErrors: []mongo.WriteError{{
					Code:    11000,
					Message: fmt.Sprintf("E11000 duplicate key error dup key: { %s: %v }", key, value),
				}}}
			}
		}
	}
	return nil
}

func upsert(opts []*options.UpdateOptions) bool {
	for _, o := range opts {
		if o != nil && o.Upsert != nil && *o.Upsert {
			return true
		}
	}
	return false
}

func toM(v interface{}) (bson.M, error) {
	if v == nil {
		return bson.M{}, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("dbtest: marshal: %w", err)
	}
	out := bson.M{}
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("dbtest: unmarshal: %w", err)
	}
	return out, nil
}

func copyM(doc bson.M) bson.M {
	out, err := toM(doc)
	if err != nil {
		panic(err)
	}
	return out
}

func isOperatorDoc(v interface{}) bool {
	m, ok := v.(bson.M)
	if !ok || len(m) == 0 {
		return false
	}
	for key := range m {
		if !strings.HasPrefix(key, "$") {
			return false
		}
	}
	return true
}

func matches(doc, filter bson.M) bool {
	for key, want := range filter {
		got, present := doc[key]

		if isOperatorDoc(want) {
			if !matchOperators(got, present, want.(bson.M)) {
				return false
			}
			continue
		}

		if !matchValue(got, present, want) {
			return false
		}
	}
	return true
}

func matchValue(got interface{}, present bool, want interface{}) bool {
	if want == nil {
		return !present || got == nil
	}
	if !present {
		return false
	}
	if arr, ok := got.(bson.A); ok {
		if _, wantArr := want.(bson.A); !wantArr {
			return contains(arr, want)
		}
	}
	return equal(got, want)
}

func matchOperators(got interface{}, present bool, ops bson.M) bool {
	for op, arg := range ops {
		switch op {
		case "$in":
			list, _ := arg.(bson.A)
			hit := false
			for _, candidate := range list {
				if matchValue(got, present, candidate) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		case "$ne":
			if matchValue(got, present, arg) {
				return false
			}
		case "$exists":
			want, _ := arg.(bool)
			if want != (present && got != nil) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func applyUpdate(doc, update bson.M, inserting bool) error {
	for op, arg := range update {
		fields, ok := arg.(bson.M)
		if !ok {
			return fmt.Errorf("dbtest: %s expects a document", op)
		}

		switch op {
		case "$set":
			for key, value := range fields {
				doc[key] = value
			}
		case "$setOnInsert":
			if inserting {
				for key, value := range fields {
					doc[key] = value
				}
			}
		case "$unset":
			for key := range fields {
				delete(doc, key)
			}
		case "$inc":
			for key, value := range fields {
				sum, err := add(doc[key], value)
				if err != nil {
					return err
				}
				doc[key] = sum
			}
		case "$addToSet":
			for key, value := range fields {
				items := bson.A{value}
				if each, ok := value.(bson.M); ok {
					if list, ok := each["$each"].(bson.A); ok {
						items = list
					}
				}

				current, _ := doc[key].(bson.A)
				if doc[key] != nil && current == nil {
					return fmt.Errorf("dbtest: cannot apply $addToSet to non-array field %s", key)
				}
				for _, item := range items {
					if !contains(current, item) {
						current = append(current, item)
					}
				}
				if current == nil {
					current = bson.A{}
				}
				doc[key] = current
			}
		default:
			return fmt.Errorf("dbtest: unsupported update operator %s", op)
		}
	}
	return nil
}

func add(current, delta interface{}) (interface{}, error) {
	if current == nil {
		current = int64(0)
	}
	a, aInt, ok := number(current)
	if !ok {
		return nil, fmt.Errorf("dbtest: cannot $inc non-numeric value %v", current)
	}
	b, bInt, ok := number(delta)
	if !ok {
		return nil, fmt.Errorf("dbtest: cannot $inc by %v", delta)
	}
	if aInt && bInt {
		return int64(a) + int64(b), nil
	}
	return a + b, nil
}

func number(v interface{}) (float64, bool, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true, true
	case int32:
		return float64(n), true, true
	case int64:
		return float64(n), true, true
	case float64:
		return n, false, true
	default:
		return 0, false, false
	}
}

func contains(list bson.A, value interface{}) bool {
	for _, item := range list {
		if equal(item, value) {
			return true
		}
	}
	return false
}

func equal(a, b interface{}) bool {
	if x, _, ok := number(a); ok {
		if y, _, ok := number(b); ok {
			return x == y
		}
		return false
	}

	ta, ra, errA := bson.MarshalValue(a)
	tb, rb, errB := bson.MarshalValue(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return ta == tb && bytes.Equal(ra, rb)
}
