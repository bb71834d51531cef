package keystore

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// Bindings are object-id to object-name records, persisted one per line
// as "<oid>|<name>". The file is rewritten atomically on every change.

func (s *KeyStore) SetBindingsFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bindingsPath = path
	s.bindings = nil
	s.names = nil
}

func (s *KeyStore) GetBindingsFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bindingsPath
}

func (s *KeyStore) loadBindingsLocked() error {
	if s.bindings != nil {
		return nil
	}

	s.bindings = make(map[uint32]string)
	s.names = make(map[string]uint32)

	if s.bindingsPath == "" {
		return nil
	}

	f, err := os.Open(s.bindingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "open bindings file")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		oidStr, name, found := strings.Cut(line, "|")
		if !found {
			continue
		}
		oid, err := strconv.ParseUint(oidStr, 10, 32)
		if err != nil {
			continue
		}
		s.bindings[uint32(oid)] = name
		s.names[name] = uint32(oid)
	}
	return scanner.Err()
}

func (s *KeyStore) saveBindingsLocked() error {
	if s.bindingsPath == "" {
		return nil
	}

	oids := make([]uint32, 0, len(s.bindings))
	for oid := range s.bindings {
		oids = append(oids, oid)
	}
	sort.Slice(oids, func(i, j int) bool { return oids[i] < oids[j] })

	var b strings.Builder
	for _, oid := range oids {
		fmt.Fprintf(&b, "%d|%s\n", oid, s.bindings[oid])
	}

	tmp := s.bindingsPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0600); err != nil {
		return errors.Wrap(err, "write bindings file")
	}
	return errors.Wrap(os.Rename(tmp, s.bindingsPath), "rename bindings file")
}

// RegisterObject binds oid to name. Re-registering the same pair is a
// no-op; a conflicting binding is rejected.
func (s *KeyStore) RegisterObject(oid uint32, name string) error {
	if oid == 0 {
		return rc.New(rc.Mgr, rc.Registering, rc.Param, rc.Invalid)
	}
	if name == "" {
		return rc.New(rc.Mgr, rc.Registering, rc.Param, rc.Empty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadBindingsLocked(); err != nil {
		return rc.Wrap(err, rc.Mgr, rc.Registering, rc.File, rc.Unknown)
	}

	if existing, ok := s.bindings[oid]; ok {
		if existing == name {
			return nil
		}
		return rc.New(rc.Mgr, rc.Registering, rc.Token, rc.Incorrect)
	}
	if _, ok := s.names[name]; ok {
		return rc.New(rc.Mgr, rc.Registering, rc.Token, rc.Incorrect)
	}

	s.bindings[oid] = name
	s.names[name] = oid
	if err := s.saveBindingsLocked(); err != nil {
		return rc.Wrap(err, rc.Mgr, rc.Registering, rc.File, rc.Unknown)
	}
	return nil
}

func (s *KeyStore) GetObjectName(oid uint32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadBindingsLocked(); err != nil {
		return "", rc.Wrap(err, rc.Mgr, rc.Retrieving, rc.File, rc.Unknown)
	}

	name, ok := s.bindings[oid]
	if !ok {
		return "", rc.New(rc.Mgr, rc.Retrieving, rc.Token, rc.NotFound)
	}
	return name, nil
}

func (s *KeyStore) GetObjectID(name string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadBindingsLocked(); err != nil {
		return 0, rc.Wrap(err, rc.Mgr, rc.Retrieving, rc.File, rc.Unknown)
	}

	oid, ok := s.names[name]
	if !ok {
		return 0, rc.New(rc.Mgr, rc.Retrieving, rc.Token, rc.NotFound)
	}
	return oid, nil
}
