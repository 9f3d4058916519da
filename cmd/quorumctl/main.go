package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/quorum-vault/api/vaulthandler"
	"github.com/ruteri/quorum-vault/cmd/flags"
	"github.com/ruteri/quorum-vault/cryptoutils"
	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/ruteri/quorum-vault/quorum"
	"github.com/ruteri/quorum-vault/record"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var flagKeyFile *cli.StringFlag = &cli.StringFlag{
	Name:    "key-file",
	Value:   "member-key.json",
	Usage:   "Path to member key file",
	EnvVars: []string{"QUORUM_KEY_FILE"},
}

var flagKeyFiles *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name:  "key-file",
	Usage: "Path to a member key file with a private key; repeat for each member",
}

var flagPublicOut *cli.StringFlag = &cli.StringFlag{
	Name:  "public-out",
	Usage: "Also write the public part of the key to this path",
}

var flagDocumentID *cli.StringFlag = &cli.StringFlag{
	Name:     "document",
	Required: true,
	Usage:    "Document id",
}

var flagMemberID *cli.StringFlag = &cli.StringFlag{
	Name:     "member",
	Required: true,
	Usage:    "Member id",
}

var flagMemberIDs *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name:  "member",
	Usage: "Member id; repeat for each member",
}

var flagSharesRequired *cli.IntFlag = &cli.IntFlag{
	Name:  "shares-required",
	Value: interfaces.DefaultSharesRequired,
	Usage: "Number of shares needed to unseal; 0 requires every member",
}

func main() {
	app := &cli.App{
		Name:  "quorumctl",
		Usage: "Manage members and sealed documents of a quorum vault",
		Flags: []cli.Flag{flags.ServerAddrFlag},
		Commands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "Generate a member key file",
				Flags: []cli.Flag{flagKeyFile, flagPublicOut},
				Action: func(cCtx *cli.Context) error {
					member, err := cryptoutils.GenerateKeyMember()
					if err != nil {
						return err
					}
					if err := cryptoutils.SaveMemberKeyFile(cCtx.String(flagKeyFile.Name), member, true); err != nil {
						return err
					}
					if out := cCtx.String(flagPublicOut.Name); out != "" {
						if err := cryptoutils.SaveMemberKeyFile(out, member, false); err != nil {
							return err
						}
					}
					return printJSON(cryptoutils.NewMemberKeyFile(member, false))
				},
			},
			{
				Name:  "members",
				Usage: "Manage quorum members",
				Subcommands: []*cli.Command{
					{
						Name:  "add",
						Usage: "Register the member of a key file",
						Flags: []cli.Flag{
							flagKeyFile,
							&cli.StringFlag{Name: "name"},
							&cli.StringFlag{Name: "email"},
							&cli.StringFlag{Name: "role"},
						},
						Action: func(cCtx *cli.Context) error {
							member, err := cryptoutils.LoadMemberKeyFile(cCtx.String(flagKeyFile.Name))
							if err != nil {
								return err
							}
							added, err := newClient(cCtx).AddKeyMember(cCtx.Context, member, quorum.MemberMetadata{
								Name:  cCtx.String("name"),
								Email: cCtx.String("email"),
								Role:  cCtx.String("role"),
							})
							if err != nil {
								return err
							}
							return printJSON(added)
						},
					},
					{
						Name:  "list",
						Usage: "List active members",
						Action: func(cCtx *cli.Context) error {
							members, err := newClient(cCtx).ListMembers(cCtx.Context)
							if err != nil {
								return err
							}
							return printJSON(members)
						},
					},
					{
						Name:  "remove",
						Usage: "Deactivate a member",
						Flags: []cli.Flag{flagMemberID},
						Action: func(cCtx *cli.Context) error {
							id, err := interfaces.NewIDFromHex(cCtx.String(flagMemberID.Name))
							if err != nil {
								return err
							}
							return newClient(cCtx).RemoveMember(cCtx.Context, id)
						},
					},
				},
			},
			{
				Name:  "documents",
				Usage: "Manage sealed documents",
				Subcommands: []*cli.Command{
					{
						Name:  "seal",
						Usage: "Seal a JSON document for a set of members",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "file", Required: true, Usage: "Path to the JSON or YAML document, - for JSON on stdin"},
							flagMemberIDs,
							flagSharesRequired,
						},
						Action: func(cCtx *cli.Context) error {
							document, err := readDocument(cCtx.String("file"))
							if err != nil {
								return err
							}
							ids, err := parseIDs(cCtx.StringSlice(flagMemberIDs.Name))
							if err != nil {
								return err
							}
							sealed, err := newClient(cCtx).SealDocument(cCtx.Context, document, ids, cCtx.Int(flagSharesRequired.Name))
							if err != nil {
								return err
							}
							return printJSON(sealed)
						},
					},
					{
						Name:  "list",
						Usage: "List documents",
						Flags: []cli.Flag{&cli.StringFlag{Name: "member", Usage: "Only documents this member holds a share of"}},
						Action: func(cCtx *cli.Context) error {
							var memberID *interfaces.ID
							if member := cCtx.String("member"); member != "" {
								id, err := interfaces.NewIDFromHex(member)
								if err != nil {
									return err
								}
								memberID = &id
							}
							docs, err := newClient(cCtx).ListDocuments(cCtx.Context, memberID)
							if err != nil {
								return err
							}
							return printJSON(docs)
						},
					},
					{
						Name:  "info",
						Usage: "Describe a document",
						Flags: []cli.Flag{flagDocumentID},
						Action: func(cCtx *cli.Context) error {
							id, err := documentID(cCtx)
							if err != nil {
								return err
							}
							doc, err := newClient(cCtx).GetDocument(cCtx.Context, id)
							if err != nil {
								return err
							}
							return printJSON(doc)
						},
					},
					{
						Name:  "can-unlock",
						Usage: "Check whether a set of members can unseal a document",
						Flags: []cli.Flag{flagDocumentID, flagMemberIDs},
						Action: func(cCtx *cli.Context) error {
							id, err := documentID(cCtx)
							if err != nil {
								return err
							}
							ids, err := parseIDs(cCtx.StringSlice(flagMemberIDs.Name))
							if err != nil {
								return err
							}
							result, err := newClient(cCtx).CanUnlock(cCtx.Context, id, ids)
							if err != nil {
								return err
							}
							return printJSON(result)
						},
					},
					{
						Name:  "delete",
						Usage: "Remove a document from listings",
						Flags: []cli.Flag{flagDocumentID},
						Action: func(cCtx *cli.Context) error {
							id, err := documentID(cCtx)
							if err != nil {
								return err
							}
							return newClient(cCtx).DeleteDocument(cCtx.Context, id)
						},
					},
					{
						Name:  "record",
						Usage: "Print the sealed record of a document",
						Flags: []cli.Flag{flagDocumentID},
						Action: func(cCtx *cli.Context) error {
							id, err := documentID(cCtx)
							if err != nil {
								return err
							}
							dto, err := newClient(cCtx).GetRecord(cCtx.Context, id)
							if err != nil {
								return err
							}
							return printJSON(dto)
						},
					},
				},
			},
			{
				Name:  "share",
				Usage: "Fetch and locally decrypt a member's share of a document",
				Flags: []cli.Flag{flagDocumentID, flagKeyFile},
				Action: func(cCtx *cli.Context) error {
					id, err := documentID(cCtx)
					if err != nil {
						return err
					}
					member, err := cryptoutils.LoadMemberKeyFile(cCtx.String(flagKeyFile.Name))
					if err != nil {
						return err
					}
					share, err := newClient(cCtx).DecryptShare(cCtx.Context, id, member)
					if err != nil {
						return err
					}
					fmt.Println(share)
					return nil
				},
			},
			{
				Name:  "unseal",
				Usage: "Unseal a document from plaintext shares or member key files",
				Flags: []cli.Flag{
					flagDocumentID,
					&cli.StringSliceFlag{Name: "share", Usage: "Plaintext share; repeat for each share"},
					flagKeyFiles,
				},
				Action: func(cCtx *cli.Context) error {
					id, err := documentID(cCtx)
					if err != nil {
						return err
					}
					client := newClient(cCtx)

					shares := cCtx.StringSlice("share")
					for _, path := range cCtx.StringSlice(flagKeyFiles.Name) {
						share, err := decryptWithKeyFile(cCtx.Context, client, id, path)
						if err != nil {
							return err
						}
						shares = append(shares, share)
					}

					document, err := client.Unseal(cCtx.Context, id, shares)
					if err != nil {
						return err
					}
					fmt.Println(string(document))
					return nil
				},
			},
			{
				Name:  "verify",
				Usage: "Verify a record file offline against its creator's key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "record", Required: true, Usage: "Path to a record JSON file"},
					&cli.StringFlag{Name: "creator-key-file", Required: true, Usage: "Key file of the record creator"},
				},
				Action: func(cCtx *cli.Context) error {
					creator, err := cryptoutils.LoadMemberKeyFile(cCtx.String("creator-key-file"))
					if err != nil {
						return err
					}
					data, err := os.ReadFile(cCtx.String("record"))
					if err != nil {
						return err
					}
					rec, err := verifyRecord(data, creator.PublicOnly())
					if err != nil {
						return err
					}
					return printJSON(map[string]any{
						"id":             rec.ID(),
						"creatorId":      rec.Creator().ID(),
						"checksum":       rec.Checksum().String(),
						"sharesRequired": rec.SharesRequired(),
						"memberIds":      rec.MemberIDs(),
						"verified":       true,
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) *vaulthandler.Client {
	return vaulthandler.NewClient(cCtx.String(flags.ServerAddrFlag.Name))
}

func documentID(cCtx *cli.Context) (interfaces.ID, error) {
	id, err := interfaces.NewIDFromHex(cCtx.String(flagDocumentID.Name))
	if err != nil {
		return interfaces.ID{}, fmt.Errorf("invalid document id: %w", err)
	}
	return id, nil
}

func parseIDs(values []string) ([]interfaces.ID, error) {
	ids := make([]interfaces.ID, len(values))
	for i, value := range values {
		id, err := interfaces.NewIDFromHex(value)
		if err != nil {
			return nil, fmt.Errorf("invalid member id %q: %w", value, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// readDocument reads a JSON or YAML document. YAML is converted to JSON.
func readDocument(path string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var document any
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("%s is not valid YAML: %w", path, err)
		}
		data, err = json.Marshal(document)
		if err != nil {
			return nil, fmt.Errorf("%s cannot be represented as JSON: %w", path, err)
		}
	default:
		if !json.Valid(data) {
			return nil, fmt.Errorf("%s is not valid JSON", path)
		}
	}
	return json.RawMessage(data), nil
}

func decryptWithKeyFile(ctx context.Context, client *vaulthandler.Client, documentID interfaces.ID, path string) (string, error) {
	member, err := cryptoutils.LoadMemberKeyFile(path)
	if err != nil {
		return "", err
	}
	return client.DecryptShare(ctx, documentID, member)
}

// verifyRecord parses a record and checks its checksum and signature against creator.
func verifyRecord(data []byte, creator interfaces.Member) (*record.QuorumDataRecord, error) {
	return record.FromJSON(data, func(id interfaces.ID) (interfaces.Member, error) {
		if id != creator.ID() {
			return nil, interfaces.NewError(interfaces.KindMemberNotFound,
				"record was created by %s, key file belongs to %s", id, creator.ID())
		}
		return creator, nil
	})
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
