package kdbx

import (
	"bytes"
	"compress/gzip"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/iudanet/keepvault/internal/crypto"
	"github.com/iudanet/keepvault/internal/hashedblock"
	"github.com/iudanet/keepvault/internal/keys"
	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/status"
	"github.com/iudanet/keepvault/internal/xmltree"
)

// DecodeOptions control Decode.
type DecodeOptions struct {
	Status status.Logger
	Logger *slog.Logger
	// RepairMode skips block hash and header hash verification
	RepairMode bool
}

// Decode reads a container and returns the database it holds.
//
// Порядок проверок: версия, ключ (start bytes), целостность блоков,
// структура XML, хеш заголовка.
func Decode(r io.Reader, key *keys.CompositeKey, opts DecodeOptions) (*models.Database, error) {
	if key == nil {
		return nil, ErrNoKey
	}
	st := status.OrNop(opts.Status)
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if !st.SetProgress(10) {
		return nil, status.ErrCancelled
	}

	finalKey, err := masterKey(key, h.KDF, h.MasterSeed)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(finalKey[:])
	if !st.SetProgress(50) {
		return nil, status.ErrCancelled
	}

	engine, err := crypto.LookupCipher(h.CipherID)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	plain, err := engine.DecryptStream(r, finalKey[:], h.EncryptionIV)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to init cipher: %w", ErrCorruptFile, err)
	}

	var startBytes [startBytesSize]byte
	if _, err := io.ReadFull(plain, startBytes[:]); err != nil {
		// неверный ключ обычно проявляется как ошибка паддинга
		if errors.Is(err, crypto.ErrInvalidPadding) {
			return nil, ErrWrongKey
		}
		return nil, fmt.Errorf("%w: failed to read start bytes: %w", ErrCorruptFile, err)
	}
	if subtle.ConstantTimeCompare(startBytes[:], h.StreamStartBytes) != 1 {
		return nil, ErrWrongKey
	}

	var payload io.Reader = hashedblock.NewReader(plain, !opts.RepairMode)
	if h.Compression == models.CompressionGZip {
		gz, err := gzip.NewReader(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open gzip stream: %w", ErrCorruptFile, err)
		}
		defer gz.Close()
		payload = gz
	}

	stream, err := crypto.NewRandomStream(h.InnerRandomStream, h.ProtectedStreamKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}

	db := models.NewDatabase("", key)
	db.CipherID = h.CipherID
	db.Compression = h.Compression
	db.InnerStream = h.InnerRandomStream
	db.KDF = h.KDF
	db.KDF.Seed = nil

	if err := xmltree.Read(payload, db, stream, xmltree.FormatEncrypted); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}
	if !st.SetProgress(90) {
		return nil, status.ErrCancelled
	}

	stored := db.Meta.HeaderHash
	if len(stored) > 0 && !bytes.Equal(stored, h.Hash[:]) {
		if !opts.RepairMode {
			return nil, ErrTamperedHeader
		}
		log.Warn("header hash mismatch ignored in repair mode")
	}
	db.Meta.HeaderHash = nil

	st.SetProgress(100)
	return db, nil
}

// Encode writes db as a container. Seeds, IV, inner stream key and start
// bytes are generated on every call.
func Encode(w io.Writer, db *models.Database, st status.Logger) error {
	if db.Key == nil {
		return ErrNoKey
	}
	st = status.OrNop(st)

	engine, err := crypto.LookupCipher(db.CipherID)
	if err != nil {
		return fmt.Errorf("failed to save database: %w", err)
	}

	streamID := db.InnerStream
	if streamID != crypto.StreamSalsa20 && streamID != crypto.StreamChaCha20 {
		streamID = crypto.StreamSalsa20
	}

	rnd, err := crypto.RandomBytes(crypto.SeedSize*3 + ivSize + startBytesSize)
	if err != nil {
		return fmt.Errorf("failed to generate header randomness: %w", err)
	}
	h := &Header{
		Version:            FileVersion,
		CipherID:           db.CipherID,
		Compression:        db.Compression,
		MasterSeed:         rnd[0:32],
		ProtectedStreamKey: rnd[32:64],
		EncryptionIV:       rnd[96 : 96+ivSize],
		StreamStartBytes:   rnd[96+ivSize:],
		InnerRandomStream:  streamID,
		KDF:                db.KDF,
	}
	h.KDF.Seed = rnd[64:96]
	if h.KDF.Rounds == 0 {
		h.KDF.Rounds = crypto.DefaultTransformRounds
	}

	finalKey, err := masterKey(db.Key, h.KDF, h.MasterSeed)
	if err != nil {
		return err
	}
	defer crypto.Wipe(finalKey[:])
	if !st.SetProgress(50) {
		return status.ErrCancelled
	}

	if _, err := w.Write(h.Bytes()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	cw, err := engine.EncryptStream(w, finalKey[:], h.EncryptionIV)
	if err != nil {
		return fmt.Errorf("failed to init cipher: %w", err)
	}
	if _, err := cw.Write(h.StreamStartBytes); err != nil {
		return fmt.Errorf("failed to write start bytes: %w", err)
	}

	hw := hashedblock.NewWriter(cw)
	var payload io.Writer = hw
	var gz *gzip.Writer
	if h.Compression == models.CompressionGZip {
		gz = gzip.NewWriter(hw)
		payload = gz
	}

	stream, err := crypto.NewRandomStream(streamID, h.ProtectedStreamKey)
	if err != nil {
		return fmt.Errorf("failed to init inner random stream: %w", err)
	}
	err = xmltree.Write(payload, db, xmltree.WriteOptions{
		Format:     xmltree.FormatEncrypted,
		Stream:     stream,
		HeaderHash: h.Hash[:],
	})
	if err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}

	// Потоки закрываются изнутри наружу
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to close gzip stream: %w", err)
		}
	}
	if err := hw.Close(); err != nil {
		return fmt.Errorf("failed to close block stream: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("failed to close cipher stream: %w", err)
	}

	st.SetProgress(100)
	return nil
}

// masterKey computes SHA-256(masterSeed || derived key).
func masterKey(key *keys.CompositeKey, kdf crypto.KDFParameters, masterSeed []byte) ([crypto.KeySize]byte, error) {
	derived, err := key.Derive(kdf)
	if err != nil {
		return [crypto.KeySize]byte{}, fmt.Errorf("failed to derive key: %w", err)
	}
	defer crypto.Wipe(derived[:])
	return crypto.Sum256(masterSeed, derived[:]), nil
}
