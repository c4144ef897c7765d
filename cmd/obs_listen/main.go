package main

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sys/unix"
)

// obs_listen prints obs-websocket 4.x traffic. It is a debugging aid for
// checking what the daemon will see (stream/record events, scene names,
// source names) without a controller attached.

func main() {
	var (
		wsURL    = flag.String("ws", "ws://127.0.0.1:4444", "obs-websocket URL")
		password = flag.String("password", "", "obs-websocket password")
		command  = flag.String("cmd", "", "Send a single request and exit (e.g. 'GetSceneList' or 'GetSourcesList')")
		filter   = flag.String("event", "", "Only print events of this update-type")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, unix.SIGINT, unix.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	if err := authenticate(conn, &writeMu, *password); err != nil {
		log.Fatalf("authentication failed: %v", err)
	}

	if *command != "" {
		resp, err := request(conn, &writeMu, *command, nil)
		if err != nil {
			log.Fatalf("request failed: %v", err)
		}
		printJSON("", resp)
		return
	}

	log.Printf("connected! (press Ctrl+C to exit)")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			typ, _ := msg["update-type"].(string)
			if typ == "" || (*filter != "" && typ != *filter) {
				continue
			}
			printJSON("["+typ+"]", msg)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// request sends one request and reads until its response arrives. Events
// received in between are dropped.
func request(conn *websocket.Conn, writeMu *sync.Mutex, typ string, fields map[string]any) (map[string]any, error) {
	payload := map[string]any{"request-type": typ, "message-id": typ}
	for k, v := range fields {
		payload[k] = v
	}

	writeMu.Lock()
	err := conn.WriteJSON(payload)
	writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", typ, err)
	}

	for {
		var resp map[string]any
		if err := conn.ReadJSON(&resp); err != nil {
			return nil, fmt.Errorf("read %s response: %w", typ, err)
		}
		if resp["message-id"] != typ {
			continue
		}
		if resp["status"] != "ok" {
			return resp, fmt.Errorf("%s: %v", typ, resp["error"])
		}
		return resp, nil
	}
}

func authenticate(conn *websocket.Conn, writeMu *sync.Mutex, password string) error {
	resp, err := request(conn, writeMu, "GetAuthRequired", nil)
	if err != nil {
		return err
	}
	if required, _ := resp["authRequired"].(bool); !required {
		return nil
	}
	if password == "" {
		return fmt.Errorf("obs requires a password (-password)")
	}

	salt, _ := resp["salt"].(string)
	challenge, _ := resp["challenge"].(string)
	secret := sha256.Sum256([]byte(password + salt))
	auth := sha256.Sum256([]byte(base64.StdEncoding.EncodeToString(secret[:]) + challenge))

	_, err = request(conn, writeMu, "Authenticate", map[string]any{
		"auth": base64.StdEncoding.EncodeToString(auth[:]),
	})
	return err
}

func printJSON(prefix string, v any) {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%s %v\n", prefix, v)
		return
	}
	if prefix != "" {
		fmt.Println(prefix)
	}
	fmt.Printf("%s\n\n", pretty)
}
