package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/detomata-com/kamclient/internal/devicekey"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// devicectl exercises the device identity from the command line: print the
// device address, or sign a purchase payload the way a game client would.
//
//	devicectl -identity
//	devicectl -sign -account KAM123... -item starter_pack -cost 150
func main() {
	var (
		identity  = flag.Bool("identity", false, "print the device address (generating a keypair on first use)")
		sign      = flag.Bool("sign", false, "sign a purchase payload")
		keyDir    = flag.String("key-dir", defaultKeyDir(), "directory holding the device key")
		accountID = flag.String("account", "", "account id for the signed payload")
		itemID    = flag.String("item", "", "item id for the signed payload")
		cost      = flag.Int64("cost", 0, "purchase cost in credits")
	)
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	ks := devicekey.NewKeyStore(*keyDir, log)
	address, signer, err := ks.GetOrCreateIdentity()
	if err != nil {
		log.Fatal("failed to load device identity", zap.Error(err))
	}

	switch {
	case *identity:
		fmt.Println(address)

	case *sign:
		if *accountID == "" || *itemID == "" || *cost <= 0 {
			fmt.Fprintln(os.Stderr, "sign requires -account, -item and a positive -cost")
			os.Exit(2)
		}
		payload := devicekey.PurchasePayload{
			AccountID:  *accountID,
			Cost:       *cost,
			ItemID:     *itemID,
			PurchaseID: uuid.NewString(),
			Timestamp:  time.Now().UnixMilli(),
		}
		sig, err := signer.SignPurchase(payload)
		if err != nil {
			log.Fatal("failed to sign purchase", zap.Error(err))
		}
		fmt.Printf("purchase_id: %s\n", payload.PurchaseID)
		fmt.Printf("timestamp:   %d\n", payload.Timestamp)
		fmt.Printf("address:     %s\n", address)
		fmt.Printf("signature:   %s\n", sig)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func defaultKeyDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".kamioza")
}
