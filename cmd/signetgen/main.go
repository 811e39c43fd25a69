package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"

	"github.com/signetlabs/signet-go/bitcoin"
	"github.com/signetlabs/signet-go/evm"
	"github.com/signetlabs/signet-go/hashes"
	"github.com/signetlabs/signet-go/infrastructure/logger"
	"github.com/signetlabs/signet-go/version"
)

func main() {
	cfg, err := parseCommandLine()
	if err != nil {
		printErrorAndExit(err, "Failed to parse arguments")
	}
	if cfg.ShowVersion {
		fmt.Printf("signetgen version %s\n", version.Version())
		return
	}

	initLog(cfg.LogFile, cfg.LogLevel)
	defer backendLog.Close()

	description, err := readTransactionDescription(cfg.Transaction)
	if err != nil {
		printErrorAndExit(err, "Failed to read the transaction description")
	}

	var privateKey *btcec.PrivateKey
	if cfg.PrivateKey != "" {
		privateKey, err = parsePrivateKey(cfg.PrivateKey)
		if err != nil {
			printErrorAndExit(err, "Failed to decode the private key")
		}
	}

	switch cfg.Chain {
	case "bitcoin":
		err = runBitcoin(description, privateKey)
	case "evm":
		err = runEVM(description, privateKey)
	}
	if err != nil {
		printErrorAndExit(err, "Failed to process the transaction")
	}
}

func readTransactionDescription(path string) ([]byte, error) {
	if path == "-" {
		data, err := ioutil.ReadAll(os.Stdin)
		return data, errors.WithStack(err)
	}
	data, err := ioutil.ReadFile(path)
	return data, errors.WithStack(err)
}

func parsePrivateKey(privateKeyHex string) (*btcec.PrivateKey, error) {
	privateKeyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "private key is not valid hexadecimal")
	}
	privateKey, _ := btcec.PrivKeyFromBytes(privateKeyBytes)
	return privateKey, nil
}

// bitcoinDescription is the JSON shape signetgen accepts for the UTXO chain.
// Output addresses are hex pubkey hashes; the spent outputs are assumed to be
// pay-to-pubkey-hash locked to the signing key, like a single-key wallet.
type bitcoinDescription struct {
	Version  *int32 `json:"version"`
	LockTime uint32 `json:"lockTime"`
	Inputs   []struct {
		TxID     string  `json:"txId"`
		Index    uint32  `json:"index"`
		Sequence *uint32 `json:"sequence"`
	} `json:"inputs"`
	Outputs []struct {
		Value   uint64 `json:"value"`
		Address string `json:"address"`
	} `json:"outputs"`
}

func runBitcoin(description []byte, privateKey *btcec.PrivateKey) error {
	defer logger.LogAndMeasureExecutionTime(log, "runBitcoin")()

	var desc bitcoinDescription
	err := json.Unmarshal(description, &desc)
	if err != nil {
		return errors.Wrap(err, "malformed transaction description")
	}

	builder := bitcoin.NewTransactionBuilder()
	if desc.Version != nil {
		builder.Version(*desc.Version)
	}
	builder.LockTime(desc.LockTime)

	for _, input := range desc.Inputs {
		txID, err := hashes.FromString(input.TxID)
		if err != nil {
			return errors.Wrapf(err, "input txId %q", input.TxID)
		}
		txIn := bitcoin.NewTxIn(bitcoin.NewOutpoint(txID, input.Index), nil)
		if input.Sequence != nil {
			txIn.Sequence = *input.Sequence
		}
		builder.AddInput(txIn)
	}
	for _, output := range desc.Outputs {
		pubKeyHash, err := bitcoin.ParseAddress(output.Address)
		if err != nil {
			return err
		}
		script, err := bitcoin.PayToPubKeyHashScript(pubKeyHash)
		if err != nil {
			return err
		}
		builder.AddOutput(bitcoin.NewTxOut(output.Value, script))
	}

	tx, err := builder.Build()
	if err != nil {
		return err
	}
	log.Infof("Built transaction %s with %d inputs and %d outputs",
		tx.TxID(), len(tx.TxIn), len(tx.TxOut))

	if privateKey == nil {
		serialized, err := tx.Serialize()
		if err != nil {
			return err
		}
		fmt.Printf("Unsigned Transaction (hex): %s\n", hex.EncodeToString(serialized))
		return nil
	}

	err = signBitcoinTransaction(tx, privateKey)
	if err != nil {
		return err
	}
	serialized, err := tx.Serialize()
	if err != nil {
		return err
	}
	fmt.Printf("Signed Transaction (hex): %s\n", hex.EncodeToString(serialized))
	fmt.Printf("Transaction ID: %s\n", tx.TxID())
	return nil
}

func signBitcoinTransaction(tx *bitcoin.Transaction, privateKey *btcec.PrivateKey) error {
	compressedPubKey := privateKey.PubKey().SerializeCompressed()
	scriptCode, err := bitcoin.PayToPubKeyHashScript(bitcoin.PubKeyHash(compressedPubKey))
	if err != nil {
		return err
	}

	for i := range tx.TxIn {
		digest, err := tx.CalcSignatureHashLegacy(i, bitcoin.SigHashAll, scriptCode)
		if err != nil {
			return err
		}
		signature := append(ecdsa.Sign(privateKey, digest[:]).Serialize(), byte(bitcoin.SigHashAll))
		err = tx.FinalizeP2PKHInput(i, signature, compressedPubKey)
		if err != nil {
			return err
		}
		log.Debugf("Signed input %d of %d", i+1, len(tx.TxIn))
	}
	return nil
}

func runEVM(description []byte, privateKey *btcec.PrivateKey) error {
	defer logger.LogAndMeasureExecutionTime(log, "runEVM")()

	tx, err := evm.FromJSON(description)
	if err != nil {
		return err
	}
	log.Infof("Built %s transaction, chain id %d, nonce %d", tx.Type, tx.ChainID, tx.Nonce)

	signingPayload := tx.BuildForSigning()
	fmt.Printf("Signing Payload (hex): %s\n", hex.EncodeToString(signingPayload))

	digest := tx.HashForSigning()
	fmt.Printf("Signing Hash: %s\n", hex.EncodeToString(digest[:]))

	if privateKey == nil {
		return nil
	}

	compact, err := ecdsa.SignCompact(privateKey, digest[:], true)
	if err != nil {
		return err
	}
	signature := &evm.Signature{
		V: uint64(compact[0]-27) & 1,
		R: compact[1:33],
		S: compact[33:65],
	}

	signed := tx.BuildWithSignature(signature)
	fmt.Printf("Signed Transaction (hex): %s\n", hex.EncodeToString(signed))
	txHash := tx.Hash(signature)
	fmt.Printf("Transaction Hash: %s\n", hex.EncodeToString(txHash[:]))
	return nil
}

func printErrorAndExit(err error, message string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", message, err)
	os.Exit(1)
}
