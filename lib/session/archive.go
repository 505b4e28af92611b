// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/docket-foundation/docket/lib/wire"
)

// Archives preserve a terminal session's full event history as a
// single deterministic artifact: the []wire.Event history encoded as
// CBOR (Core Deterministic Encoding — same events, same bytes), zstd
// compressed (event data is text-like, zstd wins over faster codecs
// there), stored at .adk_state/archive/<sessionID>.cbor.zst with a
// keyed BLAKE3 digest of the plaintext in a sidecar. The JSONL event
// log remains the human-greppable copy; the archive is the compact,
// integrity-checked one.

const archiveDirName = "archive"

// archiveDomainKey is the BLAKE3 keyed-hash domain for session
// archives. Fixed constant; changing it invalidates every existing
// digest. ASCII so the key is inspectable in hex dumps.
var archiveDomainKey = [32]byte{
	'd', 'o', 'c', 'k', 'e', 't', '.', 's', 'e', 's', 's', 'i', 'o', 'n', '.',
	'a', 'r', 'c', 'h', 'i', 'v', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// archiveEncMode is the deterministic CBOR encoder (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length
// items.
var archiveEncMode cbor.EncMode

// archiveDecMode tolerates unknown fields for forward compatibility.
var archiveDecMode cbor.DecMode

func init() {
	var err error
	archiveEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("session: CBOR encoder initialization failed: " + err.Error())
	}
	archiveDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("session: CBOR decoder initialization failed: " + err.Error())
	}
}

// archivePath returns the archive file for a session.
func archivePath(casePath, sessionID string) string {
	return filepath.Join(casePath, stateDirName, archiveDirName, sessionID+".cbor.zst")
}

// digestPath returns the digest sidecar for a session archive.
func digestPath(casePath, sessionID string) string {
	return filepath.Join(casePath, stateDirName, archiveDirName, sessionID+".digest")
}

// WriteArchive stores the event history for a terminal session and
// returns the hex BLAKE3 digest of the CBOR plaintext.
func WriteArchive(casePath, sessionID string, events []wire.Event) (string, error) {
	plaintext, err := archiveEncMode.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("encoding session archive: %w", err)
	}

	digest, err := archiveDigest(plaintext)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(casePath, stateDirName, archiveDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}

	file, err := os.Create(archivePath(casePath, sessionID))
	if err != nil {
		return "", fmt.Errorf("creating archive file: %w", err)
	}
	compressor, err := zstd.NewWriter(file)
	if err != nil {
		file.Close()
		return "", fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := compressor.Write(plaintext); err != nil {
		compressor.Close()
		file.Close()
		return "", fmt.Errorf("compressing archive: %w", err)
	}
	if err := compressor.Close(); err != nil {
		file.Close()
		return "", fmt.Errorf("finishing archive compression: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("closing archive file: %w", err)
	}

	digestLine := "blake3:" + digest + "\n"
	if err := os.WriteFile(digestPath(casePath, sessionID), []byte(digestLine), 0o644); err != nil {
		return "", fmt.Errorf("writing archive digest: %w", err)
	}
	return digest, nil
}

// ReadArchive loads a session archive, verifies its digest, and
// decodes the event history.
func ReadArchive(casePath, sessionID string) ([]wire.Event, error) {
	compressed, err := os.ReadFile(archivePath(casePath, sessionID))
	if err != nil {
		return nil, fmt.Errorf("reading session archive: %w", err)
	}

	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer decompressor.Close()
	plaintext, err := decompressor.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing session archive: %w", err)
	}

	digestData, err := os.ReadFile(digestPath(casePath, sessionID))
	if err != nil {
		return nil, fmt.Errorf("reading archive digest: %w", err)
	}
	recorded := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(digestData)), "blake3:"))

	computed, err := archiveDigest(plaintext)
	if err != nil {
		return nil, err
	}
	if computed != recorded {
		return nil, fmt.Errorf("archive digest mismatch for session %s: recorded %s, computed %s",
			sessionID, recorded, computed)
	}

	var events []wire.Event
	if err := archiveDecMode.Unmarshal(plaintext, &events); err != nil {
		return nil, fmt.Errorf("decoding session archive: %w", err)
	}
	return events, nil
}

// archiveDigest computes the keyed BLAKE3 digest of the archive
// plaintext.
func archiveDigest(plaintext []byte) (string, error) {
	hasher, err := blake3.NewKeyed(archiveDomainKey[:])
	if err != nil {
		return "", fmt.Errorf("initializing archive hasher: %w", err)
	}
	hasher.Write(plaintext)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
