package ticket

import (
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/orgsupport/ticketd/internal/store"
)

func timeFixed() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

type permissionSet struct {
	channelID  string
	targetID   string
	targetType discordgo.PermissionOverwriteType
	allow      int64
	deny       int64
}

type sentMessage struct {
	channelID string
	data      *discordgo.MessageSend
}

// fakeSession implements both Session and ResponderSession and records
// every call.
type fakeSession struct {
	mu sync.Mutex

	nextChannelID string
	channelTopics map[string]string

	createdChannels   []discordgo.GuildChannelCreateData
	deletedChannels   []string
	permissionSets    []permissionSet
	permissionDeletes []permissionSet
	sentMessages      []sentMessage
	editedMessages    []*discordgo.MessageEdit
	messagePages      [][]*discordgo.Message

	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
	followups []*discordgo.WebhookParams

	createErr     error
	deleteErr     error
	permSetErr    error
	permDeleteErr error
	channelErr    error
	respondErr    error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		nextChannelID: "chan-1",
		channelTopics: map[string]string{},
	}
}

func (f *fakeSession) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdChannels = append(f.createdChannels, data)
	f.channelTopics[f.nextChannelID] = data.Topic
	return &discordgo.Channel{ID: f.nextChannelID, GuildID: guildID, Topic: data.Topic}, nil
}

func (f *fakeSession) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	return &discordgo.Channel{ID: channelID, Topic: f.channelTopics[channelID]}, nil
}

func (f *fakeSession) ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deletedChannels = append(f.deletedChannels, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

func (f *fakeSession) ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.permSetErr != nil {
		return f.permSetErr
	}
	f.permissionSets = append(f.permissionSets, permissionSet{channelID, targetID, targetType, allow, deny})
	return nil
}

func (f *fakeSession) ChannelPermissionDelete(channelID, targetID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.permDeleteErr != nil {
		return f.permDeleteErr
	}
	f.permissionDeletes = append(f.permissionDeletes, permissionSet{channelID: channelID, targetID: targetID})
	return nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentMessages = append(f.sentMessages, sentMessage{channelID, data})
	return &discordgo.Message{ID: "msg-" + strconv.Itoa(len(f.sentMessages)), ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editedMessages = append(f.editedMessages, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeSession) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messagePages) == 0 {
		return nil, nil
	}
	page := f.messagePages[0]
	f.messagePages = f.messagePages[1:]
	return page, nil
}

func (f *fakeSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.respondErr != nil {
		return f.respondErr
	}
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, newresp)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, data)
	return &discordgo.Message{}, nil
}

// initialResponseCount instruments the single-initial-response contract.
func (f *fakeSession) initialResponseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.responses)
}

func (f *fakeSession) lastResponse() *discordgo.InteractionResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		return nil
	}
	return f.responses[len(f.responses)-1]
}

type fakeConfig struct {
	panels   map[int]store.PanelConfig
	guild    store.GuildConfig
	panelErr error
	guildErr error
}

func (f *fakeConfig) Panel(n int) (store.PanelConfig, error) {
	return f.panels[n], f.panelErr
}

func (f *fakeConfig) Guild() (store.GuildConfig, error) {
	return f.guild, f.guildErr
}

func staffMember(id string) *discordgo.Member {
	return &discordgo.Member{
		User:        &discordgo.User{ID: id, Username: "staff"},
		Permissions: discordgo.PermissionManageChannels,
	}
}

func plainMember(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{
		User:  &discordgo.User{ID: id, Username: "member"},
		Roles: roles,
	}
}

func componentInteraction(customID string, member *discordgo.Member, values ...string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		Member:    member,
		Message:   &discordgo.Message{ID: "panel-msg", ChannelID: "panel-chan"},
		Data: discordgo.MessageComponentInteractionData{
			CustomID: customID,
			Values:   values,
		},
	}}
}

func modalInteraction(customID string, member *discordgo.Member, values map[string]string) *discordgo.InteractionCreate {
	rows := make([]discordgo.MessageComponent, 0, len(values))
	for id, value := range values {
		rows = append(rows, &discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: id, Value: value},
		}})
	}
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionModalSubmit,
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		Member:    member,
		Data: discordgo.ModalSubmitInteractionData{
			CustomID:   customID,
			Components: rows,
		},
	}}
}

func commandInteraction(name string, member *discordgo.Member, sub string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		Member:    member,
		Data: discordgo.ApplicationCommandInteractionData{
			Name: name,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{
					Name:    sub,
					Type:    discordgo.ApplicationCommandOptionSubCommand,
					Options: options,
				},
			},
		},
	}}
}
