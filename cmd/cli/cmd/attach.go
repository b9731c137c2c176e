package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/workterm/workterm/pkg/client"
	"github.com/workterm/workterm/pkg/types"
	"golang.org/x/term"
)

// detachKey is Ctrl-], the classic telnet escape.
const detachKey = 0x1d

var attachCmd = &cobra.Command{
	Use:   "attach <session-id>",
	Short: "Attach the local terminal to a session",
	Long: `Attach stdin/stdout to a running terminal session over WebSocket.
Recent scrollback is replayed on attach, and local window resizes are
forwarded to the remote PTY. Press Ctrl-] to detach; the remote shell
keeps running.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkAPIKey(); err != nil {
			return err
		}

		sessionID := args[0]
		attachToken, _ := cmd.Flags().GetString("token")

		c := client.NewClient(baseURL, apiKey)
		conn, err := c.DialTerminal(context.Background(), sessionID, attachToken)
		if err != nil {
			return err
		}
		defer conn.Close()

		stdinFd := int(os.Stdin.Fd())
		if term.IsTerminal(stdinFd) {
			oldState, err := term.MakeRaw(stdinFd)
			if err != nil {
				return fmt.Errorf("set raw mode: %w", err)
			}
			defer term.Restore(stdinFd, oldState)
		}

		// The resize goroutine and the stdin pump both write frames.
		var writeMu sync.Mutex
		writeFrame := func(messageType int, data []byte) error {
			writeMu.Lock()
			defer writeMu.Unlock()
			return conn.WriteMessage(messageType, data)
		}

		sendResize := func() {
			cols, rows, err := term.GetSize(stdinFd)
			if err != nil {
				return
			}
			payload, _ := json.Marshal(types.TerminalResizeRequest{
				Type: "resize", Rows: rows, Cols: cols,
			})
			_ = writeFrame(websocket.TextMessage, payload)
		}
		sendResize()

		winch := make(chan os.Signal, 1)
		signal.Notify(winch, syscall.SIGWINCH)
		defer signal.Stop(winch)
		go func() {
			for range winch {
				sendResize()
			}
		}()

		done := make(chan string, 1)

		// Server to stdout.
		go func() {
			for {
				mt, msg, err := conn.ReadMessage()
				if err != nil {
					done <- "connection closed"
					return
				}
				switch mt {
				case websocket.BinaryMessage:
					os.Stdout.Write(msg)
				case websocket.TextMessage:
					var frame types.TerminalControlFrame
					if json.Unmarshal(msg, &frame) == nil {
						switch frame.Type {
						case "exit":
							done <- "session ended"
							return
						case "detached":
							done <- "detached by another viewer"
							return
						}
					}
				}
			}
		}()

		// Stdin to server.
		go func() {
			buf := make([]byte, 1024)
			for {
				n, err := os.Stdin.Read(buf)
				if err != nil {
					done <- "stdin closed"
					return
				}
				for i := 0; i < n; i++ {
					if buf[i] == detachKey {
						if i > 0 {
							_ = writeFrame(websocket.BinaryMessage, buf[:i])
						}
						done <- "detached"
						return
					}
				}
				if err := writeFrame(websocket.BinaryMessage, buf[:n]); err != nil {
					done <- "connection closed"
					return
				}
			}
		}()

		reason := <-done
		fmt.Printf("\r\nworkterm: %s\r\n", reason)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)

	attachCmd.Flags().String("token", "", "Attach token from terminal create")
}
