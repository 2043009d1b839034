/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ColinKennedy/ways/core"

	bolt "go.etcd.io/bbolt"
)

// sessionsBucket holds every saved session, keyed by name.
var sessionsBucket = []byte("sessions")

// SessionLayer is one context's user-data layer, keyed by the pair
// that identifies the handle.
type SessionLayer struct {
	Hierarchy  core.Hierarchy         `json:"hierarchy"`
	Assignment string                 `json:"assignment,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// Session is what save captures: user-data layers and bookmarks.
// Plugins are deliberately not included; a session restored against a
// different plugin population reapplies whatever still has a context.
type Session struct {
	Saved     string            `json:"saved"`
	Layers    []SessionLayer    `json:"layers,omitempty"`
	Bookmarks map[string]string `json:"bookmarks,omitempty"`
}

// Storage is a bolt-backed store of named sessions.
type Storage struct {
	filename string
	db       *bolt.DB
}

// NewStorage takes a filename and returns a Storage.  Nothing is
// opened until Open.
func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSession writes the session under the name, replacing any
// earlier session with that name.
func (s *Storage) SaveSession(ctx context.Context, name string, session *Session) error {
	js, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(sessionsBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(name), js)
	})
}

// GetSession reads a session back.  A name never saved returns nil,
// nil.
func (s *Storage) GetSession(ctx context.Context, name string) (*Session, error) {
	var session *Session
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return nil
		}
		bs := b.Get([]byte(name))
		if bs == nil {
			return nil
		}
		session = &Session{}
		return json.Unmarshal(bs, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns the saved session names in key order.
func (s *Storage) ListSessions(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for name, _ := c.First(); name != nil; name, _ = c.Next() {
			names = append(names, string(name))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// RemoveSession deletes a saved session.  Deleting a name that was
// never saved is not an error.
func (s *Storage) RemoveSession(ctx context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(name))
	})
}
