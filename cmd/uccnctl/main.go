package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/uccn-net/uccn-go/src/admin"
	"github.com/uccn-net/uccn-go/src/version"
)

func main() {
	// makes sure we can use defer and still return an error code to the OS
	os.Exit(run())
}

func run() (code int) {
	logbuffer := &bytes.Buffer{}
	logger := log.New(logbuffer, "", log.Flags())

	defer func() {
		if r := recover(); r != nil {
			logger.Println("Fatal error:", r)
			fmt.Print(logbuffer)
			code = 1
		}
	}()

	cmdLineEnv := newCmdLineEnv()
	cmdLineEnv.parseFlagsAndArgs()

	if cmdLineEnv.ver {
		fmt.Println(version.Summary())
		fmt.Println("To get the version number of the running uccn node, run", os.Args[0], "getSelf")
		return 0
	}

	if len(cmdLineEnv.args) == 0 {
		flag.Usage()
		return 0
	}

	cmdLineEnv.setEndpoint(logger)

	var conn net.Conn
	u, err := url.Parse(cmdLineEnv.endpoint)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "unix":
			logger.Println("Connecting to UNIX socket", cmdLineEnv.endpoint[7:])
			conn, err = net.Dial("unix", cmdLineEnv.endpoint[7:])
		case "tcp":
			logger.Println("Connecting to TCP socket", u.Host)
			conn, err = net.Dial("tcp", u.Host)
		default:
			logger.Println("Unknown protocol or malformed address - check your endpoint")
			err = errors.New("protocol not supported")
		}
	} else {
		logger.Println("Connecting to TCP socket", cmdLineEnv.endpoint)
		conn, err = net.Dial("tcp", cmdLineEnv.endpoint)
	}
	if err != nil {
		panic(err)
	}

	logger.Println("Connected")
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)
	send := &admin.AdminSocketRequest{}
	recv := &admin.AdminSocketResponse{}
	args := map[string]string{}
	for c, a := range cmdLineEnv.args {
		if c == 0 {
			if strings.HasPrefix(a, "-") {
				logger.Printf("Ignoring flag %s as it should be specified before other parameters\n", a)
				continue
			}
			logger.Printf("Sending request: %v\n", a)
			send.Name = a
			continue
		}
		tokens := strings.SplitN(a, "=", 2)
		switch {
		case len(tokens) == 1:
			logger.Println("Ignoring invalid argument:", a)
		default:
			args[tokens[0]] = tokens[1]
		}
	}
	if send.Arguments, err = json.Marshal(args); err != nil {
		panic(err)
	}
	if err := encoder.Encode(&send); err != nil {
		panic(err)
	}
	logger.Printf("Request sent")
	if err := decoder.Decode(&recv); err != nil {
		panic(err)
	}
	if recv.Status == "error" {
		if err := recv.Error; err != "" {
			fmt.Println("Admin socket returned an error:", err)
		} else {
			fmt.Println("Admin socket returned an error but didn't specify any error text")
		}
		return 1
	}
	if cmdLineEnv.injson {
		if json, err := json.MarshalIndent(recv.Response, "", "  "); err == nil {
			fmt.Println(string(json))
		}
		return 0
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t") // pad with tabs
	table.SetNoWhiteSpace(true)
	table.SetAutoWrapText(false)

	switch strings.ToLower(send.Name) {
	case "list":
		var resp admin.ListResponse
		if err := json.Unmarshal(recv.Response, &resp); err != nil {
			panic(err)
		}
		table.SetHeader([]string{"Command", "Arguments", "Description"})
		for _, entry := range resp.List {
			for i := range entry.Fields {
				entry.Fields[i] = entry.Fields[i] + "=..."
			}
			table.Append([]string{entry.Command, strings.Join(entry.Fields, ", "), entry.Description})
		}
		table.Render()

	case "getself":
		var resp admin.GetSelfResponse
		if err := json.Unmarshal(recv.Response, &resp); err != nil {
			panic(err)
		}
		if cmdLineEnv.verbose {
			table.Append([]string{"Build name:", resp.BuildName})
			table.Append([]string{"Build version:", resp.BuildVersion})
		}
		table.Append([]string{"Name:", resp.Name})
		table.Append([]string{"Location:", resp.Location})
		table.Append([]string{"Network:", resp.Network})
		table.Append([]string{"Discovery address:", resp.Broadcast})
		table.Append([]string{"Peers:", fmt.Sprintf("%d", resp.Peers)})
		table.Append([]string{"Trackers:", fmt.Sprintf("%d", resp.Trackers)})
		table.Append([]string{"Providers:", fmt.Sprintf("%d", resp.Providers)})
		table.Render()

	case "getpeers":
		var resp admin.GetPeersResponse
		if err := json.Unmarshal(recv.Response, &resp); err != nil {
			panic(err)
		}
		table.SetHeader([]string{"Name", "Location", "State", "Links", "Keepalive In", "Expires In"})
		for _, peer := range resp.Peers {
			state := "Alive"
			if !peer.Alive {
				state = "Dead"
			}
			table.Append([]string{
				peer.Name,
				peer.Location,
				state,
				fmt.Sprintf("%d", peer.Links),
				seconds(peer.KeepaliveIn),
				seconds(peer.ExpiresIn),
			})
		}
		table.Render()

	case "gettrackers", "getproviders":
		var resp struct {
			Trackers  []admin.EndpointEntry `json:"trackers"`
			Providers []admin.EndpointEntry `json:"providers"`
		}
		if err := json.Unmarshal(recv.Response, &resp); err != nil {
			panic(err)
		}
		header := []string{"Path", "Kind", "Peers"}
		if cmdLineEnv.verbose {
			header = append(header, "Hash")
		}
		table.SetHeader(header)
		for _, e := range append(resp.Trackers, resp.Providers...) {
			kind := "raw"
			if e.Record {
				kind = "record"
			}
			peers := "-"
			if len(e.Peers) > 0 {
				peers = strings.Join(e.Peers, ", ")
			}
			row := []string{e.Path, kind, peers}
			if cmdLineEnv.verbose {
				row = append(row, e.Hash)
			}
			table.Append(row)
		}
		table.Render()

	case "getstats":
		var resp admin.GetStatsResponse
		if err := json.Unmarshal(recv.Response, &resp); err != nil {
			panic(err)
		}
		table.Append([]string{"Datagrams received:", fmt.Sprintf("%d", resp.DatagramsReceived)})
		table.Append([]string{"Datagrams sent:", fmt.Sprintf("%d", resp.DatagramsSent)})
		table.Append([]string{"Send errors:", fmt.Sprintf("%d", resp.SendErrors)})
		table.Append([]string{"Malformed packets:", fmt.Sprintf("%d", resp.MalformedPackets)})
		table.Append([]string{"Deliveries:", fmt.Sprintf("%d", resp.Deliveries)})
		table.Append([]string{"Keepalives:", fmt.Sprintf("%d", resp.Keepalives)})
		table.Append([]string{"Discoveries:", fmt.Sprintf("%d", resp.Discoveries)})
		table.Render()

	default:
		fmt.Println(string(recv.Response))
	}

	return 0
}

func seconds(s float64) string {
	return (time.Duration(s*float64(time.Second))).Round(time.Millisecond).String()
}
